// internal/models/oxxo.go
package models

import "time"

// OxxoPaymentDetails is the cash-voucher payload shown on the
// oxxo-confirmation step. Immutable once received.
type OxxoPaymentDetails struct {
	Reference  string  `json:"reference"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	ExpiresAt  string  `json:"expiresAt"` // RFC 3339
	BarcodeURL string  `json:"barcodeUrl,omitempty"`
}

// DefaultOxxoExpiry is applied when the platform omits a voucher expiry.
const DefaultOxxoExpiry = 48 * time.Hour

// OxxoExpiryFromUnix converts the platform's unix-seconds expiry to the RFC
// 3339 string the client renders. Zero falls back to now+48h.
func OxxoExpiryFromUnix(unixSeconds int64, now time.Time) string {
	if unixSeconds <= 0 {
		return now.Add(DefaultOxxoExpiry).UTC().Format(time.RFC3339)
	}
	return time.UnixMilli(unixSeconds * 1000).UTC().Format(time.RFC3339)
}
