// Package contracts validates upstream permit-platform responses against the
// JSON contracts the portal depends on, before any normalization happens.
package contracts

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var createApplicationSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"success"},
	"properties": map[string]interface{}{
		"success": map[string]interface{}{"type": "boolean"},
		"application": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"id"},
			"properties": map[string]interface{}{
				"id":      map[string]interface{}{"type": "string", "minLength": 1},
				"user_id": map[string]interface{}{"type": "string"},
			},
		},
		"payment": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"success"},
			"properties": map[string]interface{}{
				"success": map[string]interface{}{"type": "boolean"},
				"message": map[string]interface{}{"type": "string"},
			},
		},
		"oxxo": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"oxxoReference": map[string]interface{}{"type": "string"},
				"expiresAt":     map[string]interface{}{"type": "number"},
				"barcodeUrl":    map[string]interface{}{"type": "string"},
			},
		},
		"paymentError": map[string]interface{}{"type": "boolean"},
		"errorCode":    map[string]interface{}{"type": "string"},
		"message":      map[string]interface{}{"type": "string"},
	},
}

var oxxoPaymentSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"success"},
	"properties": map[string]interface{}{
		"success":       map[string]interface{}{"type": "boolean"},
		"oxxoReference": map[string]interface{}{"type": "string"},
		"expiresAt":     map[string]interface{}{"type": "number"},
		"barcodeUrl":    map[string]interface{}{"type": "string"},
	},
}

var paymentStatusSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"applicationStatus"},
	"properties": map[string]interface{}{
		"applicationStatus": map[string]interface{}{"type": "string"},
		"status":            map[string]interface{}{"type": "string"},
	},
}

// ValidateCreateApplication checks a decoded create-application (or renewal)
// response body.
func ValidateCreateApplication(data map[string]interface{}) error {
	return validate(createApplicationSchema, data, "create-application")
}

// ValidateOxxoPayment checks a decoded process-OXXO-payment response body.
func ValidateOxxoPayment(data map[string]interface{}) error {
	return validate(oxxoPaymentSchema, data, "process-oxxo-payment")
}

// ValidatePaymentStatus checks a decoded check-payment-status response body.
func ValidatePaymentStatus(data map[string]interface{}) error {
	return validate(paymentStatusSchema, data, "check-payment-status")
}

func validate(schemaMap, data map[string]interface{}, contract string) error {
	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("%s contract check: %w", contract, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%s response violates contract: %s", contract, strings.Join(msgs, "; "))
	}
	return nil
}
