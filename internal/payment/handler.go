// internal/payment/handler.go

// Package payment orchestrates the submission branch of the wizard: create
// the application upstream, then branch on the chosen payment instrument.
// The create call and the OXXO voucher call are strictly sequential since
// the second needs the id produced by the first.
package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"permit-portal/internal/common/errors"
	"permit-portal/internal/common/logger"
	"permit-portal/internal/common/metrics"
	"permit-portal/internal/common/observability"
	"permit-portal/internal/draft"
	"permit-portal/internal/models"
	"permit-portal/internal/permits"
	"permit-portal/internal/wizard"
)

// Platform is the subset of upstream calls the handler issues.
type Platform interface {
	CreateApplication(ctx context.Context, form models.ApplicationFormData) (*permits.CreateResult, error)
	CreateRenewal(ctx context.Context, originalID string, form models.RenewalFormData) (*permits.CreateResult, error)
	ProcessOxxoPayment(ctx context.Context, applicationID, customerID string) (*permits.OxxoOutcome, error)
}

// Recorder persists a submission audit row. Failures are logged, never
// surfaced to the citizen.
type Recorder interface {
	Record(ctx context.Context, applicationID string, method models.PaymentMethod, amount float64, sessionID string) error
}

// Notifier sends the post-payment receipt. Best effort.
type Notifier interface {
	SendReceipt(ctx context.Context, email string, app *models.Application, method models.PaymentMethod) error
}

// Request carries the payment material collected on the payment step.
type Request struct {
	PaymentToken    string               `json:"paymentToken"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"`
	DeviceSessionID string               `json:"deviceSessionId"`
	RenewalReason   string               `json:"renewalReason,omitempty"`
	RenewalNotes    string               `json:"renewalNotes,omitempty"`
}

// Result is what a finished submission hands back to the API layer.
type Result struct {
	State       *wizard.State              `json:"state"`
	Application *models.Application        `json:"application"`
	Oxxo        *models.OxxoPaymentDetails `json:"oxxo,omitempty"`
}

// Handler drives a submission end to end and always lands the wizard on a
// sensible step, terminal on success and back on payment on failure.
type Handler struct {
	platform Platform
	wizard   *wizard.Controller
	drafts   draft.Store
	audit    Recorder
	notifier Notifier
	obs      *observability.Observability
	logger   logger.Logger
	now      func() time.Time
}

func NewHandler(platform Platform, wiz *wizard.Controller, drafts draft.Store, audit Recorder, notifier Notifier, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		platform: platform,
		wizard:   wiz,
		drafts:   drafts,
		audit:    audit,
		notifier: notifier,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "payment"}),
		now:      time.Now,
	}
}

// Submit runs the full submission for the session's draft. On any failure
// the wizard returns to the payment step and the error carries the message
// to toast; the draft survives so the user can retry.
func (h *Handler) Submit(ctx context.Context, sessionID string, req Request) (*Result, error) {
	st, err := h.wizard.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if st.Current != wizard.StepPayment {
		return nil, errors.NewStepNotAllowedError("submission requires the payment step, current is " + string(st.Current))
	}
	if req.PaymentMethod != models.PaymentCard && req.PaymentMethod != models.PaymentOxxo {
		return nil, errors.NewValidationError(map[string]string{
			"payment_method": "must be card or oxxo",
		})
	}

	started := h.now()
	created, err := h.createUpstream(ctx, st, req)
	if err != nil {
		metrics.PaymentFailures.WithLabelValues(string(req.PaymentMethod), errorLabel(err)).Inc()
		return h.failBack(sessionID, err)
	}

	var (
		terminal wizard.Step
		voucher  *models.OxxoPaymentDetails
	)

	switch req.PaymentMethod {
	case models.PaymentOxxo:
		voucher, err = h.resolveOxxo(ctx, st, created)
		if err != nil {
			metrics.PaymentFailures.WithLabelValues(string(req.PaymentMethod), errorLabel(err)).Inc()
			return h.failBack(sessionID, err)
		}
		terminal = wizard.StepOxxoConfirmation
	default:
		if created.Payment != nil && !created.Payment.Success {
			declined := errors.NewPaymentDeclinedError(created.Payment.Message)
			metrics.PaymentFailures.WithLabelValues(string(req.PaymentMethod), errorLabel(declined)).Inc()
			return h.failBack(sessionID, declined)
		}
		terminal = wizard.StepConfirmation
	}

	final, err := h.wizard.CompleteSubmission(sessionID, terminal)
	if err != nil {
		return nil, err
	}

	h.finish(ctx, st, created.Application, req.PaymentMethod, started)

	return &Result{
		State:       final,
		Application: created.Application,
		Oxxo:        voucher,
	}, nil
}

func (h *Handler) createUpstream(ctx context.Context, st *wizard.State, req Request) (*permits.CreateResult, error) {
	if st.Renewal {
		form := models.RenewalFormData{
			Domicilio:       st.Draft.Get(models.FieldDomicilio),
			Color:           st.Draft.Get(models.FieldColor),
			RenewalReason:   req.RenewalReason,
			RenewalNotes:    req.RenewalNotes,
			PaymentToken:    req.PaymentToken,
			PaymentMethod:   req.PaymentMethod,
			DeviceSessionID: req.DeviceSessionID,
			Email:           st.Email,
		}
		return h.platform.CreateRenewal(ctx, st.RenewalOf, form)
	}

	form, err := h.assembleForm(st, req)
	if err != nil {
		return nil, err
	}
	return h.platform.CreateApplication(ctx, form)
}

func (h *Handler) assembleForm(st *wizard.State, req Request) (models.ApplicationFormData, error) {
	year, err := strconv.Atoi(st.Draft.Get(models.FieldAnoModelo))
	if err != nil {
		return models.ApplicationFormData{}, errors.NewValidationError(map[string]string{
			models.FieldAnoModelo: "must be a number",
		})
	}

	return models.ApplicationFormData{
		NombreCompleto:  st.Draft.Get(models.FieldNombreCompleto),
		CurpRfc:         st.Draft.Get(models.FieldCurpRfc),
		Domicilio:       st.Draft.Get(models.FieldDomicilio),
		Marca:           st.Draft.Get(models.FieldMarca),
		Linea:           st.Draft.Get(models.FieldLinea),
		Color:           st.Draft.Get(models.FieldColor),
		NumeroSerie:     st.Draft.Get(models.FieldNumeroSerie),
		NumeroMotor:     st.Draft.Get(models.FieldNumeroMotor),
		AnoModelo:       year,
		PaymentToken:    req.PaymentToken,
		PaymentMethod:   req.PaymentMethod,
		DeviceSessionID: req.DeviceSessionID,
		Email:           st.Email,
	}, nil
}

// resolveOxxo requests a voucher for the created application and falls back
// to voucher data embedded in the create response when the dedicated call
// fails.
func (h *Handler) resolveOxxo(ctx context.Context, st *wizard.State, created *permits.CreateResult) (*models.OxxoPaymentDetails, error) {
	outcome, err := h.platform.ProcessOxxoPayment(ctx, created.Application.ID, st.UserID)
	if err == nil && outcome != nil && outcome.OxxoReference != "" {
		return h.voucherFrom(outcome, created.Application), nil
	}

	if err != nil {
		h.logger.Warn("oxxo payment call failed, trying embedded fallback", map[string]interface{}{
			"applicationId": created.Application.ID,
			"error":         err.Error(),
		})
	}

	if created.Oxxo != nil && created.Oxxo.OxxoReference != "" {
		return h.voucherFrom(created.Oxxo, created.Application), nil
	}

	if err == nil {
		err = errors.NewOxxoPaymentFailedError(fmt.Errorf("voucher response missing reference"))
	}
	return nil, errors.AsFlowError(err)
}

func (h *Handler) voucherFrom(outcome *permits.OxxoOutcome, app *models.Application) *models.OxxoPaymentDetails {
	amount := outcome.Amount
	if amount == 0 {
		amount = app.Importe
	}
	return &models.OxxoPaymentDetails{
		Reference:  outcome.OxxoReference,
		Amount:     amount,
		Currency:   "MXN",
		ExpiresAt:  models.OxxoExpiryFromUnix(outcome.ExpiresAt, h.now()),
		BarcodeURL: outcome.BarcodeURL,
	}
}

// finish runs the post-success side effects: clear the stored draft, write
// the audit row, record metrics and send the receipt. None of these block
// the confirmation.
func (h *Handler) finish(ctx context.Context, st *wizard.State, app *models.Application, method models.PaymentMethod, started time.Time) {
	if err := h.drafts.Clear(ctx, st.SessionID); err != nil {
		h.logger.Error("failed to clear draft after submission", map[string]interface{}{
			"sessionId": st.SessionID,
			"error":     err.Error(),
		})
	}

	if h.audit != nil {
		if err := h.audit.Record(ctx, app.ID, method, app.Importe, st.SessionID); err != nil {
			h.logger.Error("failed to record submission audit row", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err.Error(),
			})
		}
	}

	if h.notifier != nil && st.Email != "" {
		if err := h.notifier.SendReceipt(ctx, st.Email, app, method); err != nil {
			h.logger.Warn("failed to send receipt", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err.Error(),
			})
		}
	}

	elapsed := h.now().Sub(started)
	metrics.ApplicationsSubmitted.WithLabelValues(string(method)).Inc()
	metrics.SubmissionDuration.WithLabelValues(string(method)).Observe(elapsed.Seconds())
	if h.obs != nil {
		h.obs.RecordSubmission(ctx, string(method), "success")
		h.obs.RecordSubmissionDuration(ctx, elapsed, string(method))
	}

	h.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"sessionId":     st.SessionID,
		"paymentMethod": string(method),
		"status":        string(app.Status),
	})
}

// failBack lands the wizard on the payment step and returns the flow error.
func (h *Handler) failBack(sessionID string, cause error) (*Result, error) {
	st, err := h.wizard.ReturnToPayment(sessionID)
	if err != nil {
		return nil, err
	}
	return &Result{State: st}, errors.AsFlowError(cause)
}

func errorLabel(err error) string {
	return string(errors.AsFlowError(err).Code)
}
