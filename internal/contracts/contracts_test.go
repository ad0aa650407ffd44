// internal/contracts/contracts_test.go
package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, payload string) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(payload), &data))
	return data
}

func TestValidateCreateApplication(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "minimal success",
			payload: `{"success": true, "application": {"id": "app-1"}}`,
			wantErr: false,
		},
		{
			name:    "failure with message",
			payload: `{"success": false, "message": "rechazada"}`,
			wantErr: false,
		},
		{
			name:    "payment outcome attached",
			payload: `{"success": true, "application": {"id": "app-1"}, "payment": {"success": false, "message": "declinada"}}`,
			wantErr: false,
		},
		{
			name:    "missing success flag",
			payload: `{"application": {"id": "app-1"}}`,
			wantErr: true,
		},
		{
			name:    "application without id",
			payload: `{"success": true, "application": {"user_id": "user-1"}}`,
			wantErr: true,
		},
		{
			name:    "empty application id",
			payload: `{"success": true, "application": {"id": ""}}`,
			wantErr: true,
		},
		{
			name:    "payment without its success flag",
			payload: `{"success": true, "application": {"id": "app-1"}, "payment": {"message": "?"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreateApplication(decode(t, tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateOxxoPayment(t *testing.T) {
	assert.NoError(t, ValidateOxxoPayment(decode(t,
		`{"success": true, "oxxoReference": "93000012345678901234", "expiresAt": 1767225600, "barcodeUrl": "https://x/y.png"}`)))
	assert.NoError(t, ValidateOxxoPayment(decode(t, `{"success": false}`)))
	assert.Error(t, ValidateOxxoPayment(decode(t, `{"oxxoReference": "930"}`)), "success flag is required")
	assert.Error(t, ValidateOxxoPayment(decode(t, `{"success": true, "expiresAt": "soon"}`)), "expiresAt must be numeric")
}

func TestValidatePaymentStatus(t *testing.T) {
	assert.NoError(t, ValidatePaymentStatus(decode(t, `{"applicationStatus": "PAYMENT_RECEIVED", "status": "ok"}`)))
	assert.Error(t, ValidatePaymentStatus(decode(t, `{"status": "ok"}`)))
}
