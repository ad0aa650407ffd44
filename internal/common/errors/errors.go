// Package errors provides standardized error handling for the permit
// application flow.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeStepNotAllowed   ErrorCode = "STEP_NOT_ALLOWED"
	ErrCodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"

	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	ErrCodeNotPermitted   ErrorCode = "NOT_PERMITTED"
	ErrCodeNotFound       ErrorCode = "APPLICATION_NOT_FOUND"

	ErrCodePaymentDeclined   ErrorCode = "PAYMENT_DECLINED"
	ErrCodeOxxoPaymentFailed ErrorCode = "OXXO_PAYMENT_FAILED"
	ErrCodeSubmissionFailed  ErrorCode = "SUBMISSION_FAILED"

	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
	ErrCodeDraftStoreFailed  ErrorCode = "DRAFT_STORE_FAILED"
	ErrCodeDocumentFailed    ErrorCode = "DOCUMENT_DOWNLOAD_FAILED"
	ErrCodeNetworkError      ErrorCode = "NETWORK_ERROR"
	ErrCodeUpstreamError     ErrorCode = "UPSTREAM_ERROR"
)

// FlowError represents a structured application error. User-facing text comes
// from UserMessage, never from Details.
type FlowError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Fields    map[string]string      `json:"fields,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("FlowError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError carries a per-field error map; it never leaves the
// portal toward the upstream API.
func NewValidationError(fields map[string]string) *FlowError {
	return &FlowError{
		Code:      ErrCodeValidationFailed,
		Message:   "Field validation failed",
		Fields:    fields,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewStepNotAllowedError(details string) *FlowError {
	return &FlowError{
		Code:      ErrCodeStepNotAllowed,
		Message:   "Step transition not allowed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionNotFoundError(sessionID string) *FlowError {
	return &FlowError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Wizard session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSessionExpiredError(details string) *FlowError {
	return &FlowError{
		Code:      ErrCodeSessionExpired,
		Message:   "Authentication session has expired",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotPermittedError(details string) *FlowError {
	return &FlowError{
		Code:      ErrCodeNotPermitted,
		Message:   "Operation not permitted",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotFoundError(details string) *FlowError {
	return &FlowError{
		Code:      ErrCodeNotFound,
		Message:   "Application not found",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPaymentDeclinedError keeps the server-supplied message so it can be
// shown verbatim.
func NewPaymentDeclinedError(serverMessage string) *FlowError {
	if serverMessage == "" {
		serverMessage = "El pago no pudo ser procesado. Intenta con otro método de pago."
	}
	return &FlowError{
		Code:      ErrCodePaymentDeclined,
		Message:   serverMessage,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewOxxoPaymentFailedError(err error) *FlowError {
	return &FlowError{
		Code:      ErrCodeOxxoPaymentFailed,
		Message:   "OXXO voucher generation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewSubmissionFailedError(serverMessage string) *FlowError {
	return &FlowError{
		Code:      ErrCodeSubmissionFailed,
		Message:   "Application submission failed",
		Details:   serverMessage,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewContractViolationError(details string) *FlowError {
	return &FlowError{
		Code:      ErrCodeContractViolation,
		Message:   "Upstream response violated the expected contract",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewDraftStoreError(err error) *FlowError {
	return &FlowError{
		Code:      ErrCodeDraftStoreFailed,
		Message:   "Draft persistence failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDocumentError(docType string, err error) *FlowError {
	return &FlowError{
		Code:      ErrCodeDocumentFailed,
		Message:   "Document download failed",
		Details:   fmt.Sprintf("type: %s, error: %s", docType, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"documentType": docType},
		Timestamp: time.Now().UTC(),
	}
}

func NewNetworkError(err error) *FlowError {
	return &FlowError{
		Code:      ErrCodeNetworkError,
		Message:   "Network error talking to the permit platform",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewUpstreamError(status int, body string) *FlowError {
	return &FlowError{
		Code:      ErrCodeUpstreamError,
		Message:   fmt.Sprintf("Permit platform returned status %d", status),
		Details:   body,
		Retryable: status >= 500,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification
// ==========================

// FromStatusCode maps an upstream HTTP status to the flow error the user
// should see. Non-error statuses fall through to a generic upstream error.
func FromStatusCode(status int, body string) *FlowError {
	switch {
	case status == http.StatusUnauthorized:
		return NewSessionExpiredError(body)
	case status == http.StatusForbidden:
		return NewNotPermittedError(body)
	case status == http.StatusNotFound:
		return NewNotFoundError(body)
	default:
		return NewUpstreamError(status, body)
	}
}

// AsFlowError converts any error to a FlowError, wrapping unknown ones as
// network errors so they stay retryable.
func AsFlowError(err error) *FlowError {
	if fe, ok := err.(*FlowError); ok {
		return fe
	}
	return NewNetworkError(err)
}

// userMessages maps codes to the human-readable copy surfaced as toasts.
var userMessages = map[ErrorCode]string{
	ErrCodeValidationFailed:  "Revisa los campos marcados e intenta de nuevo.",
	ErrCodeStepNotAllowed:    "No es posible avanzar a ese paso todavía.",
	ErrCodeSessionNotFound:   "Tu sesión del formulario ya no está disponible. Comienza de nuevo.",
	ErrCodeSessionExpired:    "Tu sesión ha expirado. Inicia sesión nuevamente.",
	ErrCodeNotPermitted:      "No tienes permiso para realizar esta operación.",
	ErrCodeNotFound:          "No encontramos la solicitud indicada.",
	ErrCodeOxxoPaymentFailed: "No pudimos generar tu ficha de pago OXXO. Intenta de nuevo.",
	ErrCodeSubmissionFailed:  "No pudimos enviar tu solicitud. Intenta de nuevo.",
	ErrCodeDocumentFailed:    "No pudimos descargar el documento. Intenta de nuevo.",
	ErrCodeNetworkError:      "Error de conexión. Verifica tu internet e intenta de nuevo.",
	ErrCodeUpstreamError:     "El servicio no está disponible por el momento. Intenta más tarde.",
}

// UserMessage returns the copy shown to the citizen. Payment declines show
// the server-supplied message verbatim.
func (e *FlowError) UserMessage() string {
	if e.Code == ErrCodePaymentDeclined {
		return e.Message
	}
	if msg, ok := userMessages[e.Code]; ok {
		return msg
	}
	return userMessages[ErrCodeUpstreamError]
}

// HTTPStatus maps the error to the status the portal's own API responds with.
func (e *FlowError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeValidationFailed, ErrCodeStepNotAllowed:
		return http.StatusUnprocessableEntity
	case ErrCodeSessionNotFound, ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeSessionExpired:
		return http.StatusUnauthorized
	case ErrCodeNotPermitted:
		return http.StatusForbidden
	case ErrCodePaymentDeclined, ErrCodeOxxoPaymentFailed, ErrCodeSubmissionFailed:
		return http.StatusPaymentRequired
	case ErrCodeNetworkError, ErrCodeUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsPaymentError reports whether the wizard should land back on the payment
// step instead of failing the whole flow.
func (e *FlowError) IsPaymentError() bool {
	return e.Code == ErrCodePaymentDeclined || e.Code == ErrCodeOxxoPaymentFailed
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "STEP"):
		return "VALIDATION"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "PERMITTED"):
		return "AUTH"
	case strings.Contains(codeStr, "PAYMENT") || strings.Contains(codeStr, "OXXO"):
		return "PAYMENT"
	case strings.Contains(codeStr, "DRAFT") || strings.Contains(codeStr, "DOCUMENT"):
		return "STORAGE"
	case strings.Contains(codeStr, "NETWORK") || strings.Contains(codeStr, "UPSTREAM") || strings.Contains(codeStr, "CONTRACT"):
		return "TRANSPORT"
	default:
		return "OTHER"
	}
}
