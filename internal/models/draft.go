// internal/models/draft.go
package models

import "strings"

// Draft field names, matching the form contract of the permit platform.
const (
	FieldNombreCompleto = "nombre_completo"
	FieldCurpRfc        = "curp_rfc"
	FieldDomicilio      = "domicilio"
	FieldMarca          = "marca"
	FieldLinea          = "linea"
	FieldColor          = "color"
	FieldNumeroSerie    = "numero_serie"
	FieldNumeroMotor    = "numero_motor"
	FieldAnoModelo      = "ano_modelo"
)

// PersonalFields and VehicleFields group the draft by wizard step.
var (
	PersonalFields = []string{FieldNombreCompleto, FieldCurpRfc, FieldDomicilio}
	VehicleFields  = []string{FieldMarca, FieldLinea, FieldColor, FieldNumeroSerie, FieldNumeroMotor, FieldAnoModelo}
)

// ApplicationDraft is the in-progress, unsubmitted field mapping held for a
// wizard session. It is speculative client state and never the authoritative
// Application.
type ApplicationDraft map[string]string

// NewDraft returns an empty draft.
func NewDraft() ApplicationDraft {
	return ApplicationDraft{}
}

// Merge copies the given values over the draft, skipping unknown fields.
func (d ApplicationDraft) Merge(values map[string]string) {
	for k, v := range values {
		if isDraftField(k) {
			d[k] = v
		}
	}
}

// Get returns the trimmed value for a field.
func (d ApplicationDraft) Get(field string) string {
	return strings.TrimSpace(d[field])
}

// GroupComplete reports whether every field in the group is non-empty.
func (d ApplicationDraft) GroupComplete(fields []string) bool {
	for _, f := range fields {
		if d.Get(f) == "" {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the draft.
func (d ApplicationDraft) Clone() ApplicationDraft {
	out := make(ApplicationDraft, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func isDraftField(name string) bool {
	switch name {
	case FieldNombreCompleto, FieldCurpRfc, FieldDomicilio,
		FieldMarca, FieldLinea, FieldColor,
		FieldNumeroSerie, FieldNumeroMotor, FieldAnoModelo:
		return true
	}
	return false
}

// DraftFromApplication seeds a renewal draft from a previously issued
// application.
func DraftFromApplication(app *Application) ApplicationDraft {
	if app == nil {
		return NewDraft()
	}
	return ApplicationDraft{
		FieldNombreCompleto: app.NombreCompleto,
		FieldCurpRfc:        app.CurpRfc,
		FieldDomicilio:      app.Domicilio,
		FieldMarca:          app.Marca,
		FieldLinea:          app.Linea,
		FieldColor:          app.Color,
		FieldNumeroSerie:    app.NumeroSerie,
		FieldNumeroMotor:    app.NumeroMotor,
		FieldAnoModelo:      app.AnoModelo,
	}
}
