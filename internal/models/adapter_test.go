// internal/models/adapter_test.go
package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationEnvelope_Unwrap(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantID  string
	}{
		{
			name:    "current shape",
			payload: `{"success": true, "application": {"id": "app-1", "status": "permit_ready"}}`,
			wantID:  "app-1",
		},
		{
			name:    "legacy wrapper shape",
			payload: `{"success": true, "applicationData": {"application": {"id": "app-2", "status": "PERMIT_READY"}}}`,
			wantID:  "app-2",
		},
		{
			name:    "both present prefers current",
			payload: `{"success": true, "application": {"id": "new"}, "applicationData": {"application": {"id": "old"}}}`,
			wantID:  "new",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env ApplicationEnvelope
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &env))

			wire := env.Unwrap()
			require.NotNil(t, wire)
			assert.Equal(t, tt.wantID, wire.ID)
		})
	}
}

func TestApplicationEnvelope_UnwrapEmpty(t *testing.T) {
	var env ApplicationEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"success": false, "message": "nope"}`), &env))
	assert.Nil(t, env.Unwrap())

	_, err := NormalizeApplication(env.Unwrap())
	require.Error(t, err)
}

func TestFlexString(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"number year", `{"ano_modelo": 2022}`, "2022"},
		{"string year", `{"ano_modelo": "2022"}`, "2022"},
		{"null year", `{"ano_modelo": null}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wire WireApplication
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &wire))
			assert.Equal(t, tt.want, string(wire.AnoModelo))
		})
	}
}

func TestNormalizeApplication(t *testing.T) {
	wire := &WireApplication{
		ID:               "app-1",
		UserID:           "user-1",
		Folio:            "PRM-0001",
		Status:           "permit_ready",
		CurpRfc:          " pegj850101hdfrrn09 ",
		AnoModelo:        "2022",
		Importe:          1250.50,
		FechaExpedicion:  "2026-03-01T10:00:00Z",
		FechaVencimiento: "2026-04-01",
	}

	app, err := NormalizeApplication(wire)

	require.NoError(t, err)
	assert.Equal(t, StatusPermitReady, app.Status, "status is upper-cased")
	assert.Equal(t, "PEGJ850101HDFRRN09", app.CurpRfc)
	require.NotNil(t, app.FechaExpedicion)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *app.FechaExpedicion)
	require.NotNil(t, app.FechaVencimiento)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *app.FechaVencimiento)
}

func TestNormalizeApplication_MissingID(t *testing.T) {
	_, err := NormalizeApplication(&WireApplication{Status: "PERMIT_READY"})
	require.Error(t, err)
}

func TestNormalizeApplication_BadDateDropped(t *testing.T) {
	app, err := NormalizeApplication(&WireApplication{
		ID:              "app-1",
		FechaExpedicion: "mañana",
	})

	require.NoError(t, err)
	assert.Nil(t, app.FechaExpedicion, "unparseable dates drop rather than fail the projection")
}

func TestOxxoExpiryFromUnix(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-01-01T00:00:00Z", OxxoExpiryFromUnix(1767225600, now))
	assert.Equal(t, "2026-03-12T12:00:00Z", OxxoExpiryFromUnix(0, now), "zero falls back to 48h ahead")
	assert.Equal(t, "2026-03-12T12:00:00Z", OxxoExpiryFromUnix(-5, now))
}

func TestDraftFromApplication(t *testing.T) {
	app := &Application{
		ID:             "app-1",
		NombreCompleto: "Juan Pérez García",
		CurpRfc:        "PEGJ850101HDFRRN09",
		Domicilio:      "Av. Reforma 123",
		Marca:          "Nissan",
		Linea:          "Versa",
		Color:          "Rojo",
		NumeroSerie:    "3N1CN7AD9KL123456",
		NumeroMotor:    "HR16-123456",
		AnoModelo:      "2022",
	}

	d := DraftFromApplication(app)

	assert.True(t, d.GroupComplete(PersonalFields))
	assert.True(t, d.GroupComplete(VehicleFields))
	assert.Equal(t, "Nissan", d.Get(FieldMarca))
}

func TestDraft_MergeIgnoresUnknownFields(t *testing.T) {
	d := NewDraft()
	d.Merge(map[string]string{
		FieldMarca: "Nissan",
		"hacker":   "payload",
	})

	assert.Equal(t, "Nissan", d.Get(FieldMarca))
	assert.Empty(t, d.Get("hacker"))
}
