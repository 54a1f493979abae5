package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"ficore.org/internal/credits"
	"ficore.org/internal/identity"
	"ficore.org/internal/ids"
)

func (a *API) handleCreditsBalance(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false,
		identity.RolePersonal, identity.RoleTrader, identity.RoleAgent)
	if !ok {
		return
	}
	bal, err := a.ledger.Balance(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "balance lookup failed")
		return
	}
	writeOK(w, "", map[string]any{"balance": bal})
}

func (a *API) handleCreditsHistory(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false,
		identity.RolePersonal, identity.RoleTrader, identity.RoleAgent)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := a.ledger.History(r.Context(), u.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}
	writeOK(w, "", map[string]any{"transactions": txs})
}

type adminCreditRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (a *API) handleAdminCredit(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	var req adminCreditRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = strings.ToLower(strings.TrimSpace(req.UserID))
	if req.UserID == "" || req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "user_id and a positive amount are required")
		return
	}
	ref := ids.Ref("admin_credit", req.UserID)
	if err := a.ledger.Credit(r.Context(), req.UserID, req.Amount, credits.TypeAdminCredit, ref); err != nil {
		writeError(w, http.StatusInternalServerError, "credit failed")
		return
	}
	a.audit.Append(r.Context(), admin.ID, "admin_credit", map[string]any{
		"user_id": req.UserID, "amount": req.Amount, "reason": req.Reason, "ref": ref,
	})
	writeOK(w, "Credits added.", nil)
}
