// internal/common/validation/schema_test.go
package validation

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateCURPOrRFC(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid curp", "PEGJ850101HDFRRN09", true},
		{"valid curp lowercase", "pegj850101hdfrrn09", true},
		{"valid rfc persona fisica", "PEGJ850101AB1", true},
		{"valid rfc persona moral", "ABC850101XY2", true},
		{"too short", "PEGJ85", false},
		{"empty", "", false},
		{"garbage", "not-a-curp", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateCURPOrRFC(tt.value))
		})
	}
}

func TestValidateFields_Required(t *testing.T) {
	schema := Schema{
		Required: []string{"nombre_completo", "domicilio"},
	}

	result := ValidateFields(map[string]string{
		"nombre_completo": "Juan Pérez",
		"domicilio":       "   ",
	}, schema)

	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("domicilio"), "whitespace only counts as missing")
	assert.False(t, result.HasErrors("nombre_completo"))
}

func TestValidateFields_PatternAndLength(t *testing.T) {
	three := 3
	ten := 10
	pattern := `^[A-Z]+$`
	schema := Schema{
		Properties: map[string]Property{
			"code": {Pattern: &pattern, MinLength: &three, MaxLength: &ten},
		},
	}

	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"ok", "ABCDE", true},
		{"too short", "AB", false},
		{"too long", "ABCDEFGHIJK", false},
		{"pattern mismatch", "abcde", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateFields(map[string]string{"code": tt.value}, schema)
			assert.Equal(t, tt.valid, result.Valid)
		})
	}
}

func TestValidateFields_EmptyOptionalSkipsFormat(t *testing.T) {
	pattern := `^[A-Z]+$`
	schema := Schema{
		Properties: map[string]Property{
			"code": {Pattern: &pattern},
		},
	}

	result := ValidateFields(map[string]string{"code": ""}, schema)

	assert.True(t, result.Valid, "format rules only apply to non-empty values")
}

func TestValidateFields_YearRange(t *testing.T) {
	schema := Schema{
		Properties: map[string]Property{
			"ano_modelo": {Year: ModelYearRange()},
		},
	}
	thisYear := time.Now().Year()

	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"current year", strconv.Itoa(thisYear), true},
		{"next model year", strconv.Itoa(thisYear + 1), true},
		{"two ahead", strconv.Itoa(thisYear + 2), false},
		{"lower bound", "1950", true},
		{"below lower bound", "1949", false},
		{"not numeric", "veinte", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateFields(map[string]string{"ano_modelo": tt.value}, schema)
			assert.Equal(t, tt.valid, result.Valid)
		})
	}
}

func TestFieldErrors_FirstErrorPerField(t *testing.T) {
	three := 3
	pattern := `^[A-Z]+$`
	schema := Schema{
		Properties: map[string]Property{
			"code": {Pattern: &pattern, MinLength: &three},
		},
	}

	result := ValidateFields(map[string]string{"code": "a"}, schema)

	fieldErrs := result.FieldErrors()
	assert.Len(t, fieldErrs, 1)
	assert.Contains(t, fieldErrs, "code")
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("juan@example.com"))
	assert.False(t, ValidateEmail("juan@"))
	assert.False(t, ValidateEmail(""))
}
