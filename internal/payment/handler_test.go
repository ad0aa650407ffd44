// internal/payment/handler_test.go
package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permit-portal/internal/common/errors"
	"permit-portal/internal/common/logger"
	"permit-portal/internal/models"
	"permit-portal/internal/permits"
	"permit-portal/internal/wizard"
)

// ==========================
// Test Helper Functions
// ==========================

type fakePlatform struct {
	createResult *permits.CreateResult
	createErr    error
	oxxoOutcome  *permits.OxxoOutcome
	oxxoErr      error

	createCalls  int
	renewalCalls int
	oxxoCalls    int
	lastRenewed  string
}

func (f *fakePlatform) CreateApplication(_ context.Context, _ models.ApplicationFormData) (*permits.CreateResult, error) {
	f.createCalls++
	return f.createResult, f.createErr
}

func (f *fakePlatform) CreateRenewal(_ context.Context, originalID string, _ models.RenewalFormData) (*permits.CreateResult, error) {
	f.renewalCalls++
	f.lastRenewed = originalID
	return f.createResult, f.createErr
}

func (f *fakePlatform) ProcessOxxoPayment(_ context.Context, _, _ string) (*permits.OxxoOutcome, error) {
	f.oxxoCalls++
	return f.oxxoOutcome, f.oxxoErr
}

type memStore struct {
	drafts map[string]models.ApplicationDraft
}

func newMemStore() *memStore {
	return &memStore{drafts: make(map[string]models.ApplicationDraft)}
}

func (m *memStore) Load(_ context.Context, sessionID string) (models.ApplicationDraft, error) {
	d, ok := m.drafts[sessionID]
	if !ok {
		return nil, nil
	}
	return d.Clone(), nil
}

func (m *memStore) Save(_ context.Context, sessionID string, d models.ApplicationDraft) error {
	m.drafts[sessionID] = d.Clone()
	return nil
}

func (m *memStore) Clear(_ context.Context, sessionID string) error {
	delete(m.drafts, sessionID)
	return nil
}

type recordedAudit struct {
	applicationID string
	method        models.PaymentMethod
	calls         int
}

func (r *recordedAudit) Record(_ context.Context, applicationID string, method models.PaymentMethod, _ float64, _ string) error {
	r.calls++
	r.applicationID = applicationID
	r.method = method
	return nil
}

func createdApplication() *models.Application {
	return &models.Application{
		ID:      "app-9",
		UserID:  "user-1",
		Folio:   "PRM-0009",
		Status:  models.StatusAwaitingPayment,
		Importe: 1250.50,
	}
}

// driveToPayment walks a session through every step up to payment.
func driveToPayment(t *testing.T, ctl *wizard.Controller, store *memStore) {
	t.Helper()
	ctx := context.Background()

	_, err := ctl.Start(ctx, "s1", "user-1", "juan@example.com")
	require.NoError(t, err)

	steps := []map[string]string{
		nil,
		{
			models.FieldNombreCompleto: "Juan Pérez García",
			models.FieldCurpRfc:        "PEGJ850101HDFRRN09",
			models.FieldDomicilio:      "Av. Reforma 123, Col. Centro, CDMX",
		},
		{
			models.FieldMarca:       "Nissan",
			models.FieldLinea:       "Versa",
			models.FieldColor:       "Rojo",
			models.FieldNumeroSerie: "3N1CN7AD9KL123456",
			models.FieldNumeroMotor: "HR16-123456",
			models.FieldAnoModelo:   "2022",
		},
		nil,
	}
	for _, fields := range steps {
		st, fieldErrs, err := ctl.Advance(ctx, "s1", fields)
		require.NoError(t, err)
		require.Empty(t, fieldErrs, "unexpected validation failure on %s", st.Current)
	}

	st, err := ctl.Get("s1")
	require.NoError(t, err)
	require.Equal(t, wizard.StepPayment, st.Current)
}

func newTestHandler(t *testing.T, platform *fakePlatform) (*Handler, *wizard.Controller, *memStore, *recordedAudit) {
	t.Helper()
	log := logger.NewTestLogger(t)
	store := newMemStore()
	ctl := wizard.NewController(store, log)
	aud := &recordedAudit{}
	h := NewHandler(platform, ctl, store, aud, nil, nil, log)
	h.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return h, ctl, store, aud
}

// ==========================
// Card Branch Tests
// ==========================

func TestSubmit_CardSuccess(t *testing.T) {
	platform := &fakePlatform{
		createResult: &permits.CreateResult{
			Application: createdApplication(),
			Payment:     &permits.PaymentOutcome{Success: true},
		},
	}
	h, _, store, aud := newTestHandler(t, platform)
	driveToPayment(t, h.wizard, store)

	result, err := h.Submit(context.Background(), "s1", Request{
		PaymentToken:  "tok_123",
		PaymentMethod: models.PaymentCard,
	})

	require.NoError(t, err)
	assert.Equal(t, wizard.StepConfirmation, result.State.Current)
	assert.Equal(t, "app-9", result.Application.ID)
	assert.Nil(t, result.Oxxo)
	assert.Equal(t, 1, platform.createCalls)
	assert.Zero(t, platform.oxxoCalls)

	_, stored := store.drafts["s1"]
	assert.False(t, stored, "successful submission must clear the stored draft")
	assert.Equal(t, 1, aud.calls)
	assert.Equal(t, models.PaymentCard, aud.method)
}

func TestSubmit_CardDeclined(t *testing.T) {
	platform := &fakePlatform{
		createResult: &permits.CreateResult{
			Application: createdApplication(),
			Payment:     &permits.PaymentOutcome{Success: false, Message: "Fondos insuficientes"},
		},
	}
	h, ctl, store, aud := newTestHandler(t, platform)
	driveToPayment(t, ctl, store)

	result, err := h.Submit(context.Background(), "s1", Request{
		PaymentToken:  "tok_123",
		PaymentMethod: models.PaymentCard,
	})

	require.Error(t, err)
	fe := errors.AsFlowError(err)
	assert.Equal(t, errors.ErrCodePaymentDeclined, fe.Code)
	assert.Equal(t, "Fondos insuficientes", fe.UserMessage(), "server message shown verbatim")
	assert.Equal(t, wizard.StepPayment, result.State.Current, "wizard lands back on payment")

	_, stored := store.drafts["s1"]
	assert.True(t, stored, "draft survives a declined payment")
	assert.Zero(t, aud.calls)
}

func TestSubmit_CreateFails(t *testing.T) {
	platform := &fakePlatform{
		createErr: errors.NewUpstreamError(503, "maintenance"),
	}
	h, ctl, store, _ := newTestHandler(t, platform)
	driveToPayment(t, ctl, store)

	result, err := h.Submit(context.Background(), "s1", Request{
		PaymentToken:  "tok_123",
		PaymentMethod: models.PaymentCard,
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstreamError, errors.AsFlowError(err).Code)
	assert.Equal(t, wizard.StepPayment, result.State.Current)
}

// ==========================
// OXXO Branch Tests
// ==========================

func TestSubmit_OxxoSuccess(t *testing.T) {
	platform := &fakePlatform{
		createResult: &permits.CreateResult{Application: createdApplication()},
		oxxoOutcome: &permits.OxxoOutcome{
			Success:       true,
			OxxoReference: "93000012345678901234",
			ExpiresAt:     1767225600, // 2026-01-01T00:00:00Z
			BarcodeURL:    "https://vouchers.example/93000012345678901234.png",
		},
	}
	h, ctl, store, _ := newTestHandler(t, platform)
	driveToPayment(t, ctl, store)

	result, err := h.Submit(context.Background(), "s1", Request{
		PaymentToken:  "tok_123",
		PaymentMethod: models.PaymentOxxo,
	})

	require.NoError(t, err)
	assert.Equal(t, wizard.StepOxxoConfirmation, result.State.Current)
	require.NotNil(t, result.Oxxo)
	assert.Equal(t, "93000012345678901234", result.Oxxo.Reference)
	assert.Equal(t, "2026-01-01T00:00:00Z", result.Oxxo.ExpiresAt)
	assert.Equal(t, 1250.50, result.Oxxo.Amount, "amount falls back to the application importe")
	assert.Equal(t, 1, platform.oxxoCalls)

	_, stored := store.drafts["s1"]
	assert.False(t, stored)
}

func TestSubmit_OxxoDefaultExpiry(t *testing.T) {
	platform := &fakePlatform{
		createResult: &permits.CreateResult{Application: createdApplication()},
		oxxoOutcome: &permits.OxxoOutcome{
			Success:       true,
			OxxoReference: "93000012345678901234",
		},
	}
	h, ctl, store, _ := newTestHandler(t, platform)
	driveToPayment(t, ctl, store)

	result, err := h.Submit(context.Background(), "s1", Request{
		PaymentToken:  "tok_123",
		PaymentMethod: models.PaymentOxxo,
	})

	require.NoError(t, err)
	// h.now is pinned to 2026-03-10T12:00:00Z; default expiry is 48h ahead
	assert.Equal(t, "2026-03-12T12:00:00Z", result.Oxxo.ExpiresAt)
}

func TestSubmit_OxxoFallbackToEmbedded(t *testing.T) {
	platform := &fakePlatform{
		createResult: &permits.CreateResult{
			Application: createdApplication(),
			Oxxo: &permits.OxxoOutcome{
				Success:       true,
				OxxoReference: "93000099999999999999",
				Amount:        1250.50,
			},
		},
		oxxoErr: errors.NewNetworkError(assert.AnError),
	}
	h, ctl, store, _ := newTestHandler(t, platform)
	driveToPayment(t, ctl, store)

	result, err := h.Submit(context.Background(), "s1", Request{
		PaymentToken:  "tok_123",
		PaymentMethod: models.PaymentOxxo,
	})

	require.NoError(t, err, "embedded voucher data rescues the failed oxxo call")
	assert.Equal(t, wizard.StepOxxoConfirmation, result.State.Current)
	assert.Equal(t, "93000099999999999999", result.Oxxo.Reference)
}

func TestSubmit_OxxoBothFail(t *testing.T) {
	platform := &fakePlatform{
		createResult: &permits.CreateResult{Application: createdApplication()},
		oxxoErr:      errors.NewNetworkError(assert.AnError),
	}
	h, ctl, store, _ := newTestHandler(t, platform)
	driveToPayment(t, ctl, store)

	result, err := h.Submit(context.Background(), "s1", Request{
		PaymentToken:  "tok_123",
		PaymentMethod: models.PaymentOxxo,
	})

	require.Error(t, err)
	assert.Equal(t, wizard.StepPayment, result.State.Current)

	_, stored := store.drafts["s1"]
	assert.True(t, stored, "draft survives the failed voucher")
}

// ==========================
// Renewal and Guard Tests
// ==========================

func TestSubmit_RenewalUsesRenewalEndpoint(t *testing.T) {
	platform := &fakePlatform{
		createResult: &permits.CreateResult{
			Application: createdApplication(),
			Payment:     &permits.PaymentOutcome{Success: true},
		},
	}
	h, ctl, _, _ := newTestHandler(t, platform)
	ctx := context.Background()

	prior := createdApplication()
	prior.ID = "app-1"
	_, err := ctl.StartRenewal(ctx, "s1", "user-1", "juan@example.com", prior)
	require.NoError(t, err)
	_, _, err = ctl.Advance(ctx, "s1", nil) // review -> payment
	require.NoError(t, err)

	result, err := h.Submit(ctx, "s1", Request{
		PaymentToken:  "tok_123",
		PaymentMethod: models.PaymentCard,
		RenewalReason: "vigencia",
	})

	require.NoError(t, err)
	assert.Equal(t, wizard.StepConfirmation, result.State.Current)
	assert.Equal(t, 1, platform.renewalCalls)
	assert.Zero(t, platform.createCalls)
	assert.Equal(t, "app-1", platform.lastRenewed)
}

func TestSubmit_RequiresPaymentStep(t *testing.T) {
	platform := &fakePlatform{}
	h, ctl, _, _ := newTestHandler(t, platform)

	_, err := ctl.Start(context.Background(), "s1", "user-1", "juan@example.com")
	require.NoError(t, err)

	_, err = h.Submit(context.Background(), "s1", Request{
		PaymentToken:  "tok_123",
		PaymentMethod: models.PaymentCard,
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStepNotAllowed, errors.AsFlowError(err).Code)
	assert.Zero(t, platform.createCalls)
}

func TestSubmit_RejectsUnknownMethod(t *testing.T) {
	platform := &fakePlatform{}
	h, ctl, store, _ := newTestHandler(t, platform)
	driveToPayment(t, ctl, store)

	_, err := h.Submit(context.Background(), "s1", Request{
		PaymentToken:  "tok_123",
		PaymentMethod: "cash",
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.AsFlowError(err).Code)
}
