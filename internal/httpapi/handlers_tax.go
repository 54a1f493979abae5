package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"ficore.org/internal/credits"
	"ficore.org/internal/identity"
	"ficore.org/internal/tax"
)

// taxCalculateRequest carries the calculator form. Amounts arrive as strings
// so the lenient currency cleaner can handle ₦/commas/NGN.
type taxCalculateRequest struct {
	Name          string `json:"name"`
	Year          int    `json:"year"`
	GrossIncome   string `json:"gross_income"`
	Pension       string `json:"pension"`
	RentRelief    string `json:"rent_relief"`
	SMETurnover   string `json:"sme_turnover"`
	VATAmount     string `json:"vat_amount"`
	VATCategory   string `json:"vat_category"`
	IsBusinessVAT bool   `json:"is_business_vat"`
}

func (a *API) handleTaxCalculate(w http.ResponseWriter, r *http.Request) {
	var req taxCalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Year == 0 {
		req.Year = time.Now().Year()
	}

	// One credit per calculation for signed-in users; admins are exempt
	// inside Debit, guests browse free.
	u := userFrom(r)
	charged := false
	if u != nil {
		outcome, err := a.ledger.Debit(r.Context(), u.ID, 1, "tax_calculation", "")
		switch {
		case err != nil || outcome == credits.DebitError:
			writeError(w, http.StatusInternalServerError, "credit charge failed")
			return
		case outcome == credits.DebitInsufficient:
			writeDenial(w, http.StatusForbidden,
				"You do not have enough Ficore Credits for this action.", "/credits/request")
			return
		}
		charged = !u.IsAdmin && u.Role != identity.RoleAdmin
	}

	summary, err := tax.Summarize(
		req.Name, req.Year,
		tax.CleanCurrency(req.GrossIncome),
		tax.CleanCurrency(req.Pension),
		tax.CleanCurrency(req.RentRelief),
		tax.CleanCurrency(req.SMETurnover),
		tax.CleanCurrency(req.VATAmount),
		req.VATCategory, req.IsBusinessVAT,
	)
	if err != nil {
		if charged {
			_ = a.ledger.Compensate(r.Context(), u.ID, 1, "tax_calculation")
		}
		if errors.Is(err, tax.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "calculation failed")
		return
	}
	writeOK(w, "", map[string]any{"summary": summary})
}

func (a *API) handlePaymentInfo(w http.ResponseWriter, r *http.Request) {
	locations, err := a.rules.PaymentLocations(r.Context(), r.URL.Query().Get("state"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeOK(w, "", map[string]any{"locations": locations})
}

// handleTaxReminders lists the global filing deadlines, plus the caller's own
// reminders when they are signed in. Guests see deadlines only.
func (a *API) handleTaxReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := a.rules.UpcomingReminders(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	payload := map[string]any{"reminders": reminders}
	if u := userFrom(r); u != nil {
		personal, err := a.rules.UserReminders(r.Context(), u.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		payload["personal"] = personal
	}
	writeOK(w, "", payload)
}

type createReminderRequest struct {
	Message      string    `json:"message"`
	ReminderDate time.Time `json:"reminder_date"`
}

func (a *API) handleCreateUserReminder(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false,
		identity.RolePersonal, identity.RoleTrader, identity.RoleAgent)
	if !ok {
		return
	}
	var req createReminderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rem, err := a.rules.CreateUserReminder(r.Context(), u.ID, req.Message, req.ReminderDate)
	if err != nil {
		if errors.Is(err, tax.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "message and reminder_date are required")
			return
		}
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	a.audit.Append(r.Context(), u.ID, "tax_reminder_created", map[string]any{"reminder_id": rem.ID})
	writeOK(w, "Reminder saved.", map[string]any{"reminder": rem})
}

func (a *API) handleDeleteUserReminder(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false,
		identity.RolePersonal, identity.RoleTrader, identity.RoleAgent)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if err := a.rules.DeleteUserReminder(r.Context(), u.ID, id); err != nil {
		if errors.Is(err, tax.ErrNotFound) {
			writeError(w, http.StatusNotFound, "reminder not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeOK(w, "Reminder deleted.", nil)
}

func (a *API) handleTaxRates(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	rates, err := a.rules.Rates(r.Context(), r.URL.Query().Get("regime"), year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeOK(w, "", map[string]any{"rates": rates})
}

func (a *API) handleVATRules(w http.ResponseWriter, r *http.Request) {
	rules, err := a.rules.VATRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeOK(w, "", map[string]any{"vat_rules": rules})
}

func (a *API) handleTaxReseed(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	if err := a.rules.ForceReseed(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "reseed failed")
		return
	}
	a.audit.Append(r.Context(), u.ID, "tax_data_reseeded", nil)
	writeOK(w, "Tax reference data reseeded.", nil)
}

func (a *API) handleUpsertRate(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	var rate tax.Rate
	if err := decodeJSON(r, &rate); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rate.ID == "" || rate.Regime == "" {
		writeError(w, http.StatusBadRequest, "id and regime are required")
		return
	}
	if err := a.rules.UpsertRateAsAdmin(r.Context(), rate); err != nil {
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	a.audit.Append(r.Context(), u.ID, "tax_rate_upserted", map[string]any{"rate_id": rate.ID})
	writeOK(w, "Rate saved.", nil)
}

func (a *API) handleUpsertLocation(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	var loc tax.PaymentLocation
	if err := decodeJSON(r, &loc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if loc.ID == "" || loc.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required")
		return
	}
	if err := a.rules.UpsertLocationAsAdmin(r.Context(), loc); err != nil {
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	a.audit.Append(r.Context(), u.ID, "payment_location_upserted", map[string]any{"location_id": loc.ID})
	writeOK(w, "Location saved.", nil)
}

func (a *API) handleUpsertReminder(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	var rem tax.Reminder
	if err := decodeJSON(r, &rem); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rem.ID == "" || rem.Title == "" || rem.DueDate.IsZero() {
		writeError(w, http.StatusBadRequest, "id, title and due_date are required")
		return
	}
	if err := a.rules.UpsertReminderAsAdmin(r.Context(), rem); err != nil {
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	a.audit.Append(r.Context(), u.ID, "tax_reminder_upserted", map[string]any{"reminder_id": rem.ID})
	writeOK(w, "Reminder saved.", nil)
}

func (a *API) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if err := a.rules.DeleteReminderAsAdmin(r.Context(), id); err != nil {
		if errors.Is(err, tax.ErrNotFound) {
			writeError(w, http.StatusNotFound, "reminder not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	a.audit.Append(r.Context(), u.ID, "tax_reminder_deleted", map[string]any{"reminder_id": id})
	writeOK(w, "Reminder deleted.", nil)
}

type taxNotifyRequest struct {
	UserID  string `json:"user_id"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// handleTaxNotify pushes a deadline reminder to one user over every
// configured channel. Delivery is best-effort and detached from the request.
func (a *API) handleTaxNotify(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	var req taxNotifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "user_id and message are required")
		return
	}
	target, err := a.users.FindUser(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "user lookup failed")
		return
	}
	subject := req.Subject
	if subject == "" {
		subject = "Tax deadline reminder"
	}
	if a.notify != nil {
		go a.notify.Broadcast(context.Background(), target.Email, req.Phone, subject, req.Message)
	}
	a.audit.Append(r.Context(), admin.ID, "tax_reminder_sent", map[string]any{
		"user_id": req.UserID,
	})
	writeOK(w, "Reminder dispatched.", nil)
}
