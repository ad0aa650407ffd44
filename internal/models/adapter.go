// internal/models/adapter.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FlexString unmarshals a JSON string or number into a string. The platform
// serialized ano_modelo both ways during its API migration.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// WireApplication is the raw application object as either upstream API
// version serializes it.
type WireApplication struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Folio            string     `json:"folio"`
	Status           string     `json:"status"`
	NombreCompleto   string     `json:"nombre_completo"`
	CurpRfc          string     `json:"curp_rfc"`
	Domicilio        string     `json:"domicilio"`
	Marca            string     `json:"marca"`
	Linea            string     `json:"linea"`
	Color            string     `json:"color"`
	NumeroSerie      string     `json:"numero_serie"`
	NumeroMotor      string     `json:"numero_motor"`
	AnoModelo        FlexString `json:"ano_modelo"`
	Importe          float64    `json:"importe"`
	FechaExpedicion  string     `json:"fecha_expedicion"`
	FechaVencimiento string     `json:"fecha_vencimiento"`
}

// ApplicationEnvelope covers both response shapes seen from the platform:
// the new `application` field and the legacy `applicationData.application`
// wrapper. Nothing outside this adapter branches on shape.
type ApplicationEnvelope struct {
	Success     bool             `json:"success"`
	Application *WireApplication `json:"application"`
	ApplicationData *struct {
		Application *WireApplication `json:"application"`
	} `json:"applicationData"`
	Message string `json:"message,omitempty"`
}

// Unwrap picks whichever shape is populated, preferring the current one.
func (e *ApplicationEnvelope) Unwrap() *WireApplication {
	if e == nil {
		return nil
	}
	if e.Application != nil {
		return e.Application
	}
	if e.ApplicationData != nil {
		return e.ApplicationData.Application
	}
	return nil
}

// NormalizeApplication maps a wire application into the portal's view-model.
func NormalizeApplication(w *WireApplication) (*Application, error) {
	if w == nil {
		return nil, fmt.Errorf("empty application payload")
	}
	if w.ID == "" {
		return nil, fmt.Errorf("application payload missing id")
	}

	app := &Application{
		ID:             w.ID,
		UserID:         w.UserID,
		Folio:          w.Folio,
		Status:         ApplicationStatus(strings.ToUpper(strings.TrimSpace(w.Status))),
		NombreCompleto: w.NombreCompleto,
		CurpRfc:        strings.ToUpper(strings.TrimSpace(w.CurpRfc)),
		Domicilio:      w.Domicilio,
		Marca:          w.Marca,
		Linea:          w.Linea,
		Color:          w.Color,
		NumeroSerie:    w.NumeroSerie,
		NumeroMotor:    w.NumeroMotor,
		AnoModelo:      string(w.AnoModelo),
		Importe:        w.Importe,
	}

	app.FechaExpedicion = parseWireDate(w.FechaExpedicion)
	app.FechaVencimiento = parseWireDate(w.FechaVencimiento)

	return app, nil
}

// parseWireDate accepts RFC 3339 timestamps or bare dates; anything else is
// dropped rather than failing the whole projection.
func parseWireDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
