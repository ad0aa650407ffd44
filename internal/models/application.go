// internal/models/application.go
package models

import "time"

// ApplicationStatus enumerates the server-owned lifecycle states the portal
// consumes. Unknown values are treated as "not yet paid".
type ApplicationStatus string

const (
	StatusAwaitingPayment     ApplicationStatus = "AWAITING_PAYMENT"
	StatusAwaitingOxxoPayment ApplicationStatus = "AWAITING_OXXO_PAYMENT"
	StatusPaymentProcessing   ApplicationStatus = "PAYMENT_PROCESSING"
	StatusPaymentReceived     ApplicationStatus = "PAYMENT_RECEIVED"
	StatusGeneratingPermit    ApplicationStatus = "GENERATING_PERMIT"
	StatusPermitReady         ApplicationStatus = "PERMIT_READY"
	StatusCompleted           ApplicationStatus = "COMPLETED"
	StatusRejected            ApplicationStatus = "REJECTED"
)

// IsPendingPayment reports whether a payment-status recheck is warranted.
func (s ApplicationStatus) IsPendingPayment() bool {
	switch s {
	case StatusAwaitingPayment, StatusAwaitingOxxoPayment, StatusPaymentProcessing:
		return true
	}
	return false
}

// Application is the portal's read-only projection of a server-owned permit
// application. The portal never mutates it directly; all changes happen via
// submission calls and re-fetches.
type Application struct {
	ID             string            `json:"id"`
	UserID         string            `json:"userId"`
	Folio          string            `json:"folio,omitempty"`
	Status         ApplicationStatus `json:"status"`
	NombreCompleto string            `json:"nombreCompleto"`
	CurpRfc        string            `json:"curpRfc"`
	Domicilio      string            `json:"domicilio"`
	Marca          string            `json:"marca"`
	Linea          string            `json:"linea"`
	Color          string            `json:"color"`
	NumeroSerie    string            `json:"numeroSerie"`
	NumeroMotor    string            `json:"numeroMotor"`
	AnoModelo      string            `json:"anoModelo"`
	Importe        float64           `json:"importe"`
	FechaExpedicion  *time.Time      `json:"fechaExpedicion,omitempty"`
	FechaVencimiento *time.Time      `json:"fechaVencimiento,omitempty"`
}

// DocumentType enumerates downloadable permit documents.
type DocumentType string

const (
	DocumentPermiso     DocumentType = "permiso"
	DocumentRecibo      DocumentType = "recibo"
	DocumentCertificado DocumentType = "certificado"
	DocumentPlacas      DocumentType = "placas"
)

// IsValid reports whether the document type is one the platform serves.
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentPermiso, DocumentRecibo, DocumentCertificado, DocumentPlacas:
		return true
	}
	return false
}

// PaymentMethod is the citizen's chosen payment instrument.
type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentOxxo PaymentMethod = "oxxo"
)

// ApplicationFormData is the assembled submission payload: draft fields plus
// the payment material collected at the payment step.
type ApplicationFormData struct {
	NombreCompleto  string        `json:"nombre_completo"`
	CurpRfc         string        `json:"curp_rfc"`
	Domicilio       string        `json:"domicilio"`
	Marca           string        `json:"marca"`
	Linea           string        `json:"linea"`
	Color           string        `json:"color"`
	NumeroSerie     string        `json:"numero_serie"`
	NumeroMotor     string        `json:"numero_motor"`
	AnoModelo       int           `json:"ano_modelo"`
	PaymentToken    string        `json:"payment_token"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	DeviceSessionID string        `json:"device_session_id"`
	Email           string        `json:"email"`
}

// RenewalFormData is the reduced field set accepted by the renewal endpoint.
type RenewalFormData struct {
	Domicilio       string        `json:"domicilio"`
	Color           string        `json:"color"`
	RenewalReason   string        `json:"renewal_reason,omitempty"`
	RenewalNotes    string        `json:"renewal_notes,omitempty"`
	PaymentToken    string        `json:"payment_token"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	DeviceSessionID string        `json:"device_session_id"`
	Email           string        `json:"email"`
}
