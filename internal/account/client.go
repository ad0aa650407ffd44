// internal/account/client.go

// Package account covers the self-service account operations: deletion
// requests and data export. Both are thin calls into the permit platform.
package account

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"permit-portal/internal/common/config"
	"permit-portal/internal/common/errors"
	httpclient "permit-portal/internal/common/http"
	"permit-portal/internal/common/logger"
	"permit-portal/internal/common/validation"
)

// DeletionRequest is the payload the platform requires to schedule an
// account deletion. The email re-entry is the confirmation step.
type DeletionRequest struct {
	ConfirmEmail string `json:"confirm_email"`
	Reason       string `json:"reason,omitempty"`
}

// DeletionResult reports the scheduled deletion.
type DeletionResult struct {
	Success     bool   `json:"success"`
	ScheduledAt string `json:"scheduledAt,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Client performs account operations against the permit platform.
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
		logger: log.WithFields(map[string]interface{}{"component": "account"}),
	}
}

// RequestDeletion asks the platform to delete the account. The confirmation
// email must match the account email; the platform enforces it, but an
// obviously malformed address is rejected here first.
func (c *Client) RequestDeletion(ctx context.Context, req DeletionRequest) (*DeletionResult, error) {
	req.ConfirmEmail = strings.TrimSpace(req.ConfirmEmail)
	if !validation.ValidateEmail(req.ConfirmEmail) {
		return nil, errors.NewValidationError(map[string]string{
			"confirm_email": "must be a valid email address",
		})
	}

	var result DeletionResult
	if err := c.http.PostJSON(ctx, "/api/account/deletion", req, &result); err != nil {
		return nil, c.classify(err)
	}
	if !result.Success {
		return &result, errors.NewSubmissionFailedError(result.Message)
	}

	c.logger.Info("account deletion requested", map[string]interface{}{
		"scheduledAt": result.ScheduledAt,
	})
	return &result, nil
}

// ExportData fetches the user's data export as raw JSON, passed through to
// the browser as a file download.
func (c *Client) ExportData(ctx context.Context) (json.RawMessage, error) {
	var blob json.RawMessage
	if err := c.http.GetJSON(ctx, "/api/account/export", &blob); err != nil {
		return nil, c.classify(err)
	}
	return blob, nil
}

func (c *Client) classify(err error) error {
	if se, ok := err.(*httpclient.StatusError); ok {
		return errors.FromStatusCode(se.Status, se.Body)
	}
	return errors.NewNetworkError(err)
}
