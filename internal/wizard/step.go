// internal/wizard/step.go
package wizard

import (
	"permit-portal/internal/common/validation"
	"permit-portal/internal/models"
)

// Step identifies one stage of the application wizard.
type Step string

const (
	StepIntro            Step = "intro"
	StepPersonal         Step = "personal"
	StepVehicle          Step = "vehicle"
	StepReview           Step = "review"
	StepPayment          Step = "payment"
	StepConfirmation     Step = "confirmation"
	StepOxxoConfirmation Step = "oxxo-confirmation"
)

// stepOrder is the fixed forward sequence. The two confirmation steps are
// terminal alternates reached only through submission, never through
// Advance.
var stepOrder = []Step{StepIntro, StepPersonal, StepVehicle, StepReview, StepPayment}

// Steps returns the forward step sequence, payment last.
func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

// IsTerminal reports whether the step ends the wizard.
func (s Step) IsTerminal() bool {
	return s == StepConfirmation || s == StepOxxoConfirmation
}

func (s Step) index() int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// Next returns the following step in the fixed order, or "" at the end.
func (s Step) Next() Step {
	i := s.index()
	if i < 0 || i+1 >= len(stepOrder) {
		return ""
	}
	return stepOrder[i+1]
}

// Prev returns the preceding step, or "" at the start.
func (s Step) Prev() Step {
	i := s.index()
	if i <= 0 {
		return ""
	}
	return stepOrder[i-1]
}

// stepSchemas holds the field rules gating each step's Advance.
var stepSchemas = map[Step]validation.Schema{
	StepPersonal: {
		Required: models.PersonalFields,
		Properties: map[string]validation.Property{
			models.FieldNombreCompleto: {MinLength: intPtr(3), MaxLength: intPtr(120)},
			models.FieldCurpRfc:        {Pattern: strPtr(validation.CURPOrRFCPattern)},
			models.FieldDomicilio:      {MinLength: intPtr(5), MaxLength: intPtr(250)},
		},
	},
	StepVehicle: {
		Required: models.VehicleFields,
		Properties: map[string]validation.Property{
			models.FieldMarca:       {MinLength: intPtr(2), MaxLength: intPtr(60)},
			models.FieldLinea:       {MinLength: intPtr(1), MaxLength: intPtr(60)},
			models.FieldColor:       {MinLength: intPtr(3), MaxLength: intPtr(40)},
			models.FieldNumeroSerie: {MinLength: intPtr(5), MaxLength: intPtr(30)},
			models.FieldNumeroMotor: {MinLength: intPtr(3), MaxLength: intPtr(30)},
			models.FieldAnoModelo:   {Year: validation.ModelYearRange()},
		},
	},
}

// RequiredFields returns the non-empty field set gating a step, if any.
func RequiredFields(s Step) []string {
	if schema, ok := stepSchemas[s]; ok {
		return schema.Required
	}
	return nil
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
