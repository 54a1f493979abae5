package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"ficore.org/internal/audit"
	"ficore.org/internal/auth"
	"ficore.org/internal/identity"
)

func (a *API) handleListAgents(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.require(w, r, false, identity.RoleAdmin); !ok {
		return
	}
	agents, err := a.users.ListAgents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "agent lookup failed")
		return
	}
	writeOK(w, "", map[string]any{"agents": agents})
}

type createAgentRequest struct {
	AgentID string `json:"agent_id"`
}

func (a *API) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	var req createAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.AgentID = strings.ToUpper(strings.TrimSpace(req.AgentID))
	if !auth.ValidAgentID(req.AgentID) {
		writeError(w, http.StatusBadRequest, "agent id must be 8 upper-case alphanumeric characters")
		return
	}
	now := time.Now().UTC()
	agent := &identity.Agent{
		ID:        req.AgentID,
		Status:    identity.AgentActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.users.CreateAgent(r.Context(), agent); err != nil {
		if errors.Is(err, identity.ErrDuplicateUser) {
			writeError(w, http.StatusBadRequest, "agent id already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "agent creation failed")
		return
	}
	a.audit.Append(r.Context(), admin.ID, "agent_created", map[string]any{"agent_id": agent.ID})
	writeOK(w, "Agent created.", map[string]any{"agent": agent})
}

type agentStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.require(w, r, false, identity.RoleAdmin)
	if !ok {
		return
	}
	var req agentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Status != identity.AgentActive && req.Status != identity.AgentInactive {
		writeError(w, http.StatusBadRequest, "status must be active or inactive")
		return
	}
	id := mux.Vars(r)["id"]
	if err := a.users.SetAgentStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "status update failed")
		return
	}
	a.audit.Append(r.Context(), admin.ID, "agent_status_changed", map[string]any{
		"agent_id": id, "status": req.Status,
	})
	writeOK(w, "Agent status updated.", nil)
}

func (a *API) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.require(w, r, false, identity.RoleAdmin); !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "audit lookup failed")
		return
	}
	writeOK(w, "", map[string]any{"entries": entries})
}

// handleSetup rebuilds the reference data from the canonical tables. It is
// keyed rather than session-gated so an operator can repair an empty database
// before any admin can log in.
func (a *API) handleSetup(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-Setup-Key")
	if key == "" {
		key = r.URL.Query().Get("key")
	}
	if a.setupKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(a.setupKey)) != 1 {
		writeError(w, http.StatusForbidden, "invalid setup key")
		return
	}
	if err := a.rules.ForceReseed(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "tax seed failed")
		return
	}
	if err := a.hub.SeedIfMissing(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "catalog seed failed")
		return
	}
	a.audit.Append(r.Context(), audit.SystemActor, "database_initialized", nil)
	writeOK(w, "Reference data initialized.", nil)
}
