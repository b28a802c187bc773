package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	app "github.com/CircleVault-Network/vault_engine/internal/app"
	"github.com/CircleVault-Network/vault_engine/internal/app/domain/vault"
	"github.com/CircleVault-Network/vault_engine/internal/app/metrics"
	"github.com/CircleVault-Network/vault_engine/internal/app/services/factory"
)

// handler bundles HTTP endpoints for the engine services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/users", h.users)
	mux.HandleFunc("/users/", h.userResources)
	mux.HandleFunc("/vaults", h.vaults)
	mux.HandleFunc("/vaults/", h.vaultResources)
	mux.HandleFunc("/healthz", h.healthz)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Identity    string `json:"identity"`
			DisplayName string `json:"display_name"`
			Admin       bool   `json:"admin"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		u, err := h.app.Directory.Register(r.Context(), payload.Identity, payload.DisplayName, payload.Admin)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, u)

	case http.MethodGet:
		users, err := h.app.Directory.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, users)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) userResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	identity := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		u, err := h.app.Directory.Get(r.Context(), identity)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
		return
	}

	switch parts[1] {
	case "verify":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload struct {
			Caller   string `json:"caller"`
			Approved bool   `json:"approved"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, err := h.app.Directory.Verify(r.Context(), payload.Caller, identity, payload.Approved)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case "vaults":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		owned, err := h.app.Registry.ListByOwner(r.Context(), identity)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, owned)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) vaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Creator      string `json:"creator"`
		Name         string `json:"name"`
		GoalAmount   int64  `json:"goal_amount"`
		Frequency    string `json:"frequency"`
		Currency     string `json:"currency"`
		Start        string `json:"start"`
		End          string `json:"end"`
		Participants int    `json:"participants"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start, err := parseTimestamp(payload.Start, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	end, err := parseTimestamp(payload.End, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Factory.CreateVault(r.Context(), factory.CreateParams{
		Creator:      payload.Creator,
		Name:         payload.Name,
		GoalAmount:   payload.GoalAmount,
		Frequency:    payload.Frequency,
		Currency:     payload.Currency,
		Start:        start,
		End:          end,
		Participants: payload.Participants,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) vaultResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/vaults"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	key := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		v, err := h.app.Registry.Get(r.Context(), key)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
		return
	}
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[1] {
	case "progress":
		h.vaultProgress(w, r, key)
	case "contributions":
		h.vaultContributions(w, r, key)
	case "deposit":
		h.vaultDeposit(w, r, key)
	case "withdraw":
		h.vaultWithdraw(w, r, key)
	case "invite", "accept", "reject":
		h.vaultMembership(w, r, key, parts[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) vaultProgress(w http.ResponseWriter, r *http.Request, key string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	v, err := h.app.Registry.Get(r.Context(), key)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var progress []vault.ParticipantProgress
	if v.Kind == vault.KindGroup {
		progress, err = h.app.Group.Progress(r.Context(), key)
	} else {
		progress, err = h.app.Solo.Progress(r.Context(), key)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *handler) vaultContributions(w http.ResponseWriter, r *http.Request, key string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	records, err := h.app.Registry.Contributions(r.Context(), key)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handler) vaultDeposit(w http.ResponseWriter, r *http.Request, key string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Caller string `json:"caller"`
		Amount int64  `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	v, err := h.app.Registry.Get(r.Context(), key)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var updated vault.Vault
	if v.Kind == vault.KindGroup {
		updated, err = h.app.Group.Deposit(r.Context(), key, payload.Caller, payload.Amount)
	} else {
		updated, err = h.app.Solo.Deposit(r.Context(), key, payload.Caller, payload.Amount)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) vaultWithdraw(w http.ResponseWriter, r *http.Request, key string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Caller string `json:"caller"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	v, err := h.app.Registry.Get(r.Context(), key)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var amount int64
	if v.Kind == vault.KindGroup {
		amount, err = h.app.Group.Withdraw(r.Context(), key, payload.Caller)
	} else {
		amount, err = h.app.Solo.Withdraw(r.Context(), key, payload.Caller)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"amount": amount})
}

func (h *handler) vaultMembership(w http.ResponseWriter, r *http.Request, key, action string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		Inviter   string `json:"inviter"`
		Candidate string `json:"candidate"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var err error
	switch action {
	case "invite":
		err = h.app.Group.Invite(r.Context(), key, payload.Inviter, payload.Candidate)
	case "accept":
		err = h.app.Group.Accept(r.Context(), key, payload.Inviter, payload.Candidate)
	case "reject":
		err = h.app.Group.Reject(r.Context(), key, payload.Inviter, payload.Candidate)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseTimestamp(raw, field string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339 timestamp", field)
	}
	return parsed, nil
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
