// internal/permits/client.go
package permits

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"permit-portal/internal/common/config"
	"permit-portal/internal/common/errors"
	httpclient "permit-portal/internal/common/http"
	"permit-portal/internal/common/logger"
	"permit-portal/internal/contracts"
	"permit-portal/internal/models"
)

// PaymentOutcome is the card-payment result embedded in a create response.
type PaymentOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// OxxoOutcome is the voucher payload returned by the OXXO payment endpoint,
// also embedded in some create responses as a fallback.
type OxxoOutcome struct {
	Success       bool    `json:"success"`
	OxxoReference string  `json:"oxxoReference"`
	ExpiresAt     int64   `json:"expiresAt,omitempty"` // unix seconds
	BarcodeURL    string  `json:"barcodeUrl,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	Message       string  `json:"message,omitempty"`
}

// CreateResult is the normalized outcome of a create-application (or
// create-renewal) call.
type CreateResult struct {
	Application  *models.Application
	Payment      *PaymentOutcome
	Oxxo         *OxxoOutcome
	PaymentError bool
	ErrorCode    string
	Message      string
}

// PaymentStatus is the reduced payment-status projection.
type PaymentStatus struct {
	ApplicationStatus models.ApplicationStatus `json:"applicationStatus"`
	Status            string                   `json:"status"`
}

type createResponse struct {
	models.ApplicationEnvelope
	Payment      *PaymentOutcome `json:"payment,omitempty"`
	Oxxo         *OxxoOutcome    `json:"oxxo,omitempty"`
	PaymentError bool            `json:"paymentError,omitempty"`
	ErrorCode    string          `json:"errorCode,omitempty"`
}

// Client talks to the permit platform's HTTP API. Responses are contract
// checked and normalized at this boundary so nothing downstream branches on
// wire shape.
type Client struct {
	http   *httpclient.Client
	logger logger.Logger
}

func NewClient(cfg config.PermitAPIConfig, log logger.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:   httpclient.NewClient(cfg.BaseURL, cfg.APIKey, timeout),
		logger: log.WithFields(map[string]interface{}{"component": "permits_client"}),
	}
}

// CreateApplication submits a new permit application with its payment
// material attached.
func (c *Client) CreateApplication(ctx context.Context, form models.ApplicationFormData) (*CreateResult, error) {
	return c.create(ctx, "/api/applications", form)
}

// CreateRenewal submits a renewal keyed by the original permit id.
func (c *Client) CreateRenewal(ctx context.Context, originalID string, form models.RenewalFormData) (*CreateResult, error) {
	return c.create(ctx, "/api/applications/"+url.PathEscape(originalID)+"/renewal", form)
}

func (c *Client) create(ctx context.Context, path string, body interface{}) (*CreateResult, error) {
	var raw json.RawMessage
	if err := c.http.PostJSON(ctx, path, body, &raw); err != nil {
		return nil, c.classify(err)
	}

	payload, err := asMap(raw)
	if err != nil {
		return nil, errors.NewContractViolationError(err.Error())
	}
	if err := contracts.ValidateCreateApplication(payload); err != nil {
		return nil, errors.NewContractViolationError(err.Error())
	}

	var resp createResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.NewContractViolationError("decode create response: " + err.Error())
	}

	result := &CreateResult{
		Payment:      resp.Payment,
		Oxxo:         resp.Oxxo,
		PaymentError: resp.PaymentError,
		ErrorCode:    resp.ErrorCode,
		Message:      resp.Message,
	}

	if !resp.Success {
		if resp.PaymentError || resp.ErrorCode != "" {
			return result, errors.NewPaymentDeclinedError(resp.Message)
		}
		return result, errors.NewSubmissionFailedError(resp.Message)
	}

	app, err := models.NormalizeApplication(resp.Unwrap())
	if err != nil {
		return nil, errors.NewContractViolationError(err.Error())
	}
	result.Application = app
	return result, nil
}

// ProcessOxxoPayment requests an OXXO voucher for a created application.
func (c *Client) ProcessOxxoPayment(ctx context.Context, applicationID, customerID string) (*OxxoOutcome, error) {
	body := map[string]string{
		"applicationId": applicationID,
		"customerId":    customerID,
	}

	var raw json.RawMessage
	if err := c.http.PostJSON(ctx, "/api/payments/oxxo", body, &raw); err != nil {
		return nil, c.classify(err)
	}

	payload, err := asMap(raw)
	if err != nil {
		return nil, errors.NewContractViolationError(err.Error())
	}
	if err := contracts.ValidateOxxoPayment(payload); err != nil {
		return nil, errors.NewContractViolationError(err.Error())
	}

	var outcome OxxoOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return nil, errors.NewContractViolationError("decode oxxo response: " + err.Error())
	}
	if !outcome.Success {
		return &outcome, errors.NewOxxoPaymentFailedError(fmt.Errorf("platform reported failure: %s", outcome.Message))
	}
	return &outcome, nil
}

// CheckPaymentStatus fetches the current payment status for an application.
// Unknown status values pass through and the caller treats them as unpaid.
func (c *Client) CheckPaymentStatus(ctx context.Context, applicationID string) (*PaymentStatus, error) {
	var raw json.RawMessage
	if err := c.http.GetJSON(ctx, "/api/applications/"+url.PathEscape(applicationID)+"/payment-status", &raw); err != nil {
		return nil, c.classify(err)
	}

	payload, err := asMap(raw)
	if err != nil {
		return nil, errors.NewContractViolationError(err.Error())
	}
	if err := contracts.ValidatePaymentStatus(payload); err != nil {
		return nil, errors.NewContractViolationError(err.Error())
	}

	var status PaymentStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, errors.NewContractViolationError("decode payment status: " + err.Error())
	}
	return &status, nil
}

// GetApplication fetches a single application by id.
func (c *Client) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	var env models.ApplicationEnvelope
	if err := c.http.GetJSON(ctx, "/api/applications/"+url.PathEscape(id), &env); err != nil {
		return nil, c.classify(err)
	}

	app, err := models.NormalizeApplication(env.Unwrap())
	if err != nil {
		return nil, errors.NewContractViolationError(err.Error())
	}
	return app, nil
}

// ListApplications fetches the user's applications. Both envelope shapes are
// tolerated per item.
func (c *Client) ListApplications(ctx context.Context, userID string) ([]*models.Application, error) {
	path := "/api/applications"
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}

	var resp struct {
		Success      bool                     `json:"success"`
		Applications []*models.WireApplication `json:"applications"`
	}
	if err := c.http.GetJSON(ctx, path, &resp); err != nil {
		return nil, c.classify(err)
	}

	apps := make([]*models.Application, 0, len(resp.Applications))
	for _, wire := range resp.Applications {
		app, err := models.NormalizeApplication(wire)
		if err != nil {
			c.logger.Warn("skipping malformed application in list", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// DownloadDocument fetches a permit document as binary PDF bytes.
func (c *Client) DownloadDocument(ctx context.Context, applicationID string, docType models.DocumentType) ([]byte, string, error) {
	if !docType.IsValid() {
		return nil, "", errors.NewDocumentError(string(docType), fmt.Errorf("unknown document type"))
	}

	path := "/api/applications/" + url.PathEscape(applicationID) + "/documents/" + url.PathEscape(string(docType))
	data, contentType, err := c.http.GetRaw(ctx, path)
	if err != nil {
		if se, ok := err.(*httpclient.StatusError); ok {
			return nil, "", errors.FromStatusCode(se.Status, se.Body)
		}
		return nil, "", errors.NewDocumentError(string(docType), err)
	}
	return data, contentType, nil
}

// classify maps transport and upstream status failures into flow errors.
func (c *Client) classify(err error) error {
	if se, ok := err.(*httpclient.StatusError); ok {
		return errors.FromStatusCode(se.Status, se.Body)
	}
	return errors.NewNetworkError(err)
}

func asMap(raw json.RawMessage) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode response object: %v", err)
	}
	return payload, nil
}
