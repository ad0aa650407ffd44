// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"permit-portal/internal/account"
	"permit-portal/internal/common/errors"
	"permit-portal/internal/common/logger"
	"permit-portal/internal/models"
	"permit-portal/internal/payment"
	"permit-portal/internal/status"
	"permit-portal/internal/wizard"
)

// Pinger is the readiness contract for backing stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	wizard   *wizard.Controller
	payments *payment.Handler
	status   *status.Service
	account  *account.Client
	logger   logger.Logger
	version  string

	postgres Pinger
	redis    Pinger
}

func NewHandlers(wiz *wizard.Controller, payments *payment.Handler, st *status.Service, acct *account.Client, postgres, redis Pinger, version string, log logger.Logger) *Handlers {
	return &Handlers{
		wizard:   wiz,
		payments: payments,
		status:   st,
		account:  acct,
		postgres: postgres,
		redis:    redis,
		version:  version,
		logger:   log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

type startWizardRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId"`
	Email     string `json:"email"`
}

// StartWizard opens a wizard session, restoring any stored draft.
func (h *Handlers) StartWizard(w http.ResponseWriter, r *http.Request) {
	var req startWizardRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	st, err := h.wizard.Start(r.Context(), req.SessionID, req.UserID, req.Email)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, stateResponse(st, nil))
}

type startRenewalRequest struct {
	SessionID     string `json:"sessionId,omitempty"`
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	ApplicationID string `json:"applicationId"`
}

// StartRenewal opens a renewal session seeded from a prior permit; the
// wizard lands directly on review.
func (h *Handlers) StartRenewal(w http.ResponseWriter, r *http.Request) {
	var req startRenewalRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ApplicationID == "" {
		h.writeError(w, errors.NewValidationError(map[string]string{"applicationId": "required"}))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	view, err := h.status.PermitView(r.Context(), req.SessionID, req.ApplicationID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !status.IsEligibleForRenewal(view.Application.FechaVencimiento, time.Now()) {
		h.writeError(w, errors.NewStepNotAllowedError("permit is outside the renewal window"))
		return
	}

	st, err := h.wizard.StartRenewal(r.Context(), req.SessionID, req.UserID, req.Email, view.Application)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, stateResponse(st, nil))
}

// GetWizard returns the current session state.
func (h *Handlers) GetWizard(w http.ResponseWriter, r *http.Request) {
	st, err := h.wizard.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stateResponse(st, nil))
}

// DropWizard discards the in-memory session. The stored draft survives.
func (h *Handlers) DropWizard(w http.ResponseWriter, r *http.Request) {
	h.wizard.Drop(mux.Vars(r)["sessionId"])
	w.WriteHeader(http.StatusNoContent)
}

type advanceRequest struct {
	Fields map[string]string `json:"fields"`
}

// Advance merges fields and moves the wizard forward when validation passes.
// Field errors come back with 422 and the wizard stays on its step.
func (h *Handlers) Advance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	st, fieldErrs, err := h.wizard.Advance(r.Context(), mux.Vars(r)["sessionId"], req.Fields)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(fieldErrs) > 0 {
		h.writeJSON(w, http.StatusUnprocessableEntity, stateResponse(st, fieldErrs))
		return
	}
	h.writeJSON(w, http.StatusOK, stateResponse(st, nil))
}

// Retreat moves back one step.
func (h *Handlers) Retreat(w http.ResponseWriter, r *http.Request) {
	st, err := h.wizard.Retreat(mux.Vars(r)["sessionId"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stateResponse(st, nil))
}

type jumpRequest struct {
	Step string `json:"step"`
}

// Jump moves directly to an already-visited step.
func (h *Handlers) Jump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if !h.decode(w, r, &req) {
		return
	}

	st, err := h.wizard.JumpTo(mux.Vars(r)["sessionId"], wizard.Step(req.Step))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stateResponse(st, nil))
}

// Submit runs the payment branch for the session's draft.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req payment.Request
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.payments.Submit(r.Context(), mux.Vars(r)["sessionId"], req)
	if err != nil {
		h.writeSubmitError(w, result, err)
		return
	}

	body := map[string]interface{}{
		"state":       stateResponse(result.State, nil),
		"application": result.Application,
	}
	if result.Oxxo != nil {
		body["oxxo"] = result.Oxxo
	}
	h.writeJSON(w, http.StatusOK, body)
}

// ListPermits returns the user's applications with derived view fields.
func (h *Handlers) ListPermits(w http.ResponseWriter, r *http.Request) {
	views, err := h.status.ListView(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"permits": views})
}

// GetPermit returns one application's derived view. The sessionId query
// parameter scopes the one-shot payment recheck and toast dedup.
func (h *Handlers) GetPermit(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = "anonymous"
	}

	view, err := h.status.PermitView(r.Context(), sessionID, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// DownloadDocument streams a permit document as a PDF attachment.
func (h *Handlers) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	docType := models.DocumentType(vars["type"])

	data, contentType, filename, err := h.status.Document(r.Context(), vars["id"], docType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if contentType == "" {
		contentType = "application/pdf"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// RequestDeletion schedules an account deletion with the platform.
func (h *Handlers) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	var req account.DeletionRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.account.RequestDeletion(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, result)
}

// ExportData streams the data export as a JSON file download.
func (h *Handlers) ExportData(w http.ResponseWriter, r *http.Request) {
	blob, err := h.account.ExportData(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="datos-cuenta.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready reports readiness of the backing stores.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	for name, pinger := range map[string]Pinger{"postgres": h.postgres, "redis": h.redis} {
		if pinger == nil {
			continue
		}
		if err := pinger.Ping(ctx); err != nil {
			checks[name] = "unavailable"
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, map[string]interface{}{"checks": checks})
}

// --- helpers ---

type stateBody struct {
	SessionID   string            `json:"sessionId"`
	Step        string            `json:"step"`
	Completed   []string          `json:"completed"`
	Renewal     bool              `json:"renewal"`
	RenewalOf   string            `json:"renewalOf,omitempty"`
	Draft       map[string]string `json:"draft"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func stateResponse(st *wizard.State, fieldErrs map[string]string) stateBody {
	completed := make([]string, 0, len(st.Completed))
	for _, step := range wizard.Steps() {
		if st.Completed[step] {
			completed = append(completed, string(step))
		}
	}
	return stateBody{
		SessionID:   st.SessionID,
		Step:        string(st.Current),
		Completed:   completed,
		Renewal:     st.Renewal,
		RenewalOf:   st.RenewalOf,
		Draft:       map[string]string(st.Draft),
		FieldErrors: fieldErrs,
	}
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		h.writeError(w, errors.NewValidationError(map[string]string{"body": "invalid JSON"}))
		return false
	}
	return true
}

func (h *Handlers) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

type errorBody struct {
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Retryable   bool              `json:"retryable"`
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	fe := errors.AsFlowError(err)
	h.writeJSON(w, fe.HTTPStatus(), errorBody{
		Code:        string(fe.Code),
		Message:     fe.UserMessage(),
		FieldErrors: fe.Fields,
		Retryable:   fe.Retryable,
	})
}

// writeSubmitError keeps the wizard state in the error payload so the page
// can land back on the payment step.
func (h *Handlers) writeSubmitError(w http.ResponseWriter, result *payment.Result, err error) {
	fe := errors.AsFlowError(err)
	body := map[string]interface{}{
		"code":      string(fe.Code),
		"message":   fe.UserMessage(),
		"retryable": fe.Retryable,
	}
	if len(fe.Fields) > 0 {
		body["fieldErrors"] = fe.Fields
	}
	if result != nil && result.State != nil {
		body["state"] = stateResponse(result.State, nil)
	}
	h.writeJSON(w, fe.HTTPStatus(), body)
}

func (h *Handlers) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request handled", map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(started).String(),
		})
	})
}
