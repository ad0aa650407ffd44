// internal/permits/client_test.go
package permits

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"permit-portal/internal/common/config"
	"permit-portal/internal/common/errors"
	"permit-portal/internal/common/logger"
	"permit-portal/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.PermitAPIConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 5000,
	}, logger.NewTestLogger(t))
}

func testForm() models.ApplicationFormData {
	return models.ApplicationFormData{
		NombreCompleto: "Juan Pérez García",
		CurpRfc:        "PEGJ850101HDFRRN09",
		Domicilio:      "Av. Reforma 123",
		Marca:          "Nissan",
		Linea:          "Versa",
		Color:          "Rojo",
		NumeroSerie:    "3N1CN7AD9KL123456",
		NumeroMotor:    "HR16-123456",
		AnoModelo:      2022,
		PaymentToken:   "tok_123",
		PaymentMethod:  models.PaymentCard,
		Email:          "juan@example.com",
	}
}

// ==========================
// Create Application Tests
// ==========================

func TestCreateApplication_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/applications", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PEGJ850101HDFRRN09", body["curp_rfc"])
		assert.Equal(t, float64(2022), body["ano_modelo"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"application": map[string]interface{}{
				"id":         "app-1",
				"user_id":    "user-1",
				"status":     "awaiting_payment",
				"ano_modelo": 2022,
				"importe":    1250.50,
			},
			"payment": map[string]interface{}{"success": true},
		})
	})

	result, err := client.CreateApplication(context.Background(), testForm())

	require.NoError(t, err)
	assert.Equal(t, "app-1", result.Application.ID)
	assert.Equal(t, models.StatusAwaitingPayment, result.Application.Status)
	assert.Equal(t, "2022", result.Application.AnoModelo)
	require.NotNil(t, result.Payment)
	assert.True(t, result.Payment.Success)
}

func TestCreateApplication_LegacyShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"applicationData": map[string]interface{}{
				"application": map[string]interface{}{
					"id":     "app-legacy",
					"status": "AWAITING_PAYMENT",
				},
			},
		})
	})

	result, err := client.CreateApplication(context.Background(), testForm())

	require.NoError(t, err)
	assert.Equal(t, "app-legacy", result.Application.ID)
}

func TestCreateApplication_PaymentErrorFlag(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":      false,
			"paymentError": true,
			"errorCode":    "card_declined",
			"message":      "Tarjeta rechazada por el banco",
		})
	})

	_, err := client.CreateApplication(context.Background(), testForm())

	require.Error(t, err)
	fe := errors.AsFlowError(err)
	assert.Equal(t, errors.ErrCodePaymentDeclined, fe.Code)
	assert.Equal(t, "Tarjeta rechazada por el banco", fe.UserMessage())
}

func TestCreateApplication_ContractViolation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// application present but missing its id
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     true,
			"application": map[string]interface{}{"user_id": "user-1"},
		})
	})

	_, err := client.CreateApplication(context.Background(), testForm())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeContractViolation, errors.AsFlowError(err).Code)
}

func TestCreateApplication_StatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode errors.ErrorCode
	}{
		{"401 session expired", http.StatusUnauthorized, errors.ErrCodeSessionExpired},
		{"403 not permitted", http.StatusForbidden, errors.ErrCodeNotPermitted},
		{"404 not found", http.StatusNotFound, errors.ErrCodeNotFound},
		{"503 upstream", http.StatusServiceUnavailable, errors.ErrCodeUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.CreateApplication(context.Background(), testForm())

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.AsFlowError(err).Code)
		})
	}
}

func TestCreateRenewal_PathKeyedByOriginal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/applications/app-1/renewal", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     true,
			"application": map[string]interface{}{"id": "app-2", "status": "AWAITING_PAYMENT"},
		})
	})

	result, err := client.CreateRenewal(context.Background(), "app-1", models.RenewalFormData{
		Domicilio:     "Av. Reforma 123",
		Color:         "Rojo",
		PaymentToken:  "tok_123",
		PaymentMethod: models.PaymentCard,
	})

	require.NoError(t, err)
	assert.Equal(t, "app-2", result.Application.ID)
}

// ==========================
// OXXO and Status Tests
// ==========================

func TestProcessOxxoPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/payments/oxxo", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "app-1", body["applicationId"])
		assert.Equal(t, "user-1", body["customerId"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":       true,
			"oxxoReference": "93000012345678901234",
			"expiresAt":     1767225600,
			"barcodeUrl":    "https://vouchers.example/x.png",
		})
	})

	outcome, err := client.ProcessOxxoPayment(context.Background(), "app-1", "user-1")

	require.NoError(t, err)
	assert.Equal(t, "93000012345678901234", outcome.OxxoReference)
	assert.Equal(t, int64(1767225600), outcome.ExpiresAt)
}

func TestProcessOxxoPayment_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "proveedor no disponible",
		})
	})

	_, err := client.ProcessOxxoPayment(context.Background(), "app-1", "user-1")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeOxxoPaymentFailed, errors.AsFlowError(err).Code)
}

func TestCheckPaymentStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/applications/app-1/payment-status", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"applicationStatus": "PAYMENT_RECEIVED",
			"status":            "ok",
		})
	})

	ps, err := client.CheckPaymentStatus(context.Background(), "app-1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusPaymentReceived, ps.ApplicationStatus)
}

// ==========================
// Read Path Tests
// ==========================

func TestGetApplication(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/applications/app-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"application": map[string]interface{}{
				"id":                "app-1",
				"status":            "PERMIT_READY",
				"folio":             "PRM-0001",
				"fecha_vencimiento": "2026-04-01",
			},
		})
	})

	app, err := client.GetApplication(context.Background(), "app-1")

	require.NoError(t, err)
	assert.Equal(t, models.StatusPermitReady, app.Status)
	require.NotNil(t, app.FechaVencimiento)
}

func TestListApplications_SkipsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user-1", r.URL.Query().Get("userId"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"applications": []map[string]interface{}{
				{"id": "app-1", "status": "COMPLETED"},
				{"status": "COMPLETED"}, // missing id
				{"id": "app-3", "status": "permit_ready"},
			},
		})
	})

	apps, err := client.ListApplications(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "app-1", apps[0].ID)
	assert.Equal(t, "app-3", apps[1].ID)
}

func TestDownloadDocument(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/applications/app-1/documents/permiso", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(pdf)
	})

	data, contentType, err := client.DownloadDocument(context.Background(), "app-1", models.DocumentPermiso)

	require.NoError(t, err)
	assert.Equal(t, pdf, data)
	assert.Equal(t, "application/pdf", contentType)
}

func TestDownloadDocument_UnknownType(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an invalid type")
	})

	_, _, err := client.DownloadDocument(context.Background(), "app-1", models.DocumentType("licencia"))

	require.Error(t, err)
}
