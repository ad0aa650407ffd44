// internal/status/service.go

// Package status derives what the permit detail and list views show: the
// primary action per lifecycle state, renewal eligibility, expiring-soon
// banners and document downloads.
package status

import (
	"context"
	"fmt"
	"time"

	"permit-portal/internal/common/errors"
	"permit-portal/internal/common/logger"
	"permit-portal/internal/common/metrics"
	"permit-portal/internal/models"
	"permit-portal/internal/permits"
)

// PrimaryAction is the single call-to-action derived from a permit's status.
type PrimaryAction string

const (
	ActionShowVoucher PrimaryAction = "show_voucher"
	ActionWait        PrimaryAction = "wait"
	ActionDownload    PrimaryAction = "download"
	ActionRenew       PrimaryAction = "renew"
	ActionSupport     PrimaryAction = "contact_support"
)

// Toast is a one-off notification surfaced to the citizen.
type Toast struct {
	Key     string `json:"key"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// View is the permit detail projection served to the page.
type View struct {
	Application     *models.Application `json:"application"`
	PrimaryAction   PrimaryAction       `json:"primaryAction"`
	EligibleRenewal bool                `json:"eligibleForRenewal"`
	ExpiringSoon    bool                `json:"expiringSoon"`
	DaysUntilExpiry *int                `json:"daysUntilExpiry,omitempty"`
	Toasts          []Toast             `json:"toasts,omitempty"`
}

// PaymentChecker re-reads the payment status upstream.
type PaymentChecker interface {
	CheckPaymentStatus(ctx context.Context, applicationID string) (*permits.PaymentStatus, error)
}

// DocumentFetcher downloads a permit document.
type DocumentFetcher interface {
	DownloadDocument(ctx context.Context, applicationID string, docType models.DocumentType) ([]byte, string, error)
}

// Service assembles permit views over an injected data source.
type Service struct {
	source  permits.DataSource
	checker PaymentChecker
	docs    DocumentFetcher
	effects *EffectGate
	toasts  *ToastDeduper
	logger  logger.Logger
	now     func() time.Time
}

func NewService(source permits.DataSource, checker PaymentChecker, docs DocumentFetcher, effects *EffectGate, log logger.Logger) *Service {
	return &Service{
		source:  source,
		checker: checker,
		docs:    docs,
		effects: effects,
		toasts:  NewToastDeduper(),
		logger:  log.WithFields(map[string]interface{}{"component": "status"}),
		now:     time.Now,
	}
}

// PermitView fetches one application and derives its view. When the status
// is pending payment, the upstream payment status is rechecked exactly once
// per session and view; a changed status triggers a single re-fetch.
func (s *Service) PermitView(ctx context.Context, sessionID, applicationID string) (*View, error) {
	app, err := s.source.FetchApplication(ctx, applicationID)
	if err != nil {
		return nil, errors.AsFlowError(err)
	}

	var toasts []Toast
	if app.Status.IsPendingPayment() && s.checker != nil {
		if refreshed, toast := s.recheckPayment(ctx, sessionID, app); refreshed != nil {
			app = refreshed
			if toast != nil {
				toasts = append(toasts, *toast)
			}
		}
	}

	return s.buildView(app, toasts), nil
}

// ListView fetches all of the user's applications with derived fields.
func (s *Service) ListView(ctx context.Context, userID string) ([]*View, error) {
	apps, err := s.source.FetchApplications(ctx, userID)
	if err != nil {
		return nil, errors.AsFlowError(err)
	}

	views := make([]*View, 0, len(apps))
	for _, app := range apps {
		views = append(views, s.buildView(app, nil))
	}
	return views, nil
}

// Document downloads the given document, named by folio when the permit has
// one. A failure is scoped to the one document type.
func (s *Service) Document(ctx context.Context, applicationID string, docType models.DocumentType) ([]byte, string, string, error) {
	if !docType.IsValid() {
		return nil, "", "", errors.NewDocumentError(string(docType), fmt.Errorf("unknown document type"))
	}

	app, err := s.source.FetchApplication(ctx, applicationID)
	if err != nil {
		return nil, "", "", errors.AsFlowError(err)
	}

	data, contentType, err := s.docs.DownloadDocument(ctx, applicationID, docType)
	if err != nil {
		return nil, "", "", errors.AsFlowError(err)
	}

	metrics.DocumentDownloads.WithLabelValues(string(docType)).Inc()
	return data, contentType, DocumentFilename(docType, app.Folio, app.ID), nil
}

// recheckPayment issues at most one status recheck per session for the
// application and returns a fresh projection when the status moved. A nil
// return means the view keeps the application it already has.
func (s *Service) recheckPayment(ctx context.Context, sessionID string, app *models.Application) (*models.Application, *Toast) {
	fire, err := s.effects.FireOnce(ctx, sessionID, "payment-recheck:"+app.ID)
	if err != nil {
		s.logger.Warn("effect gate unavailable, skipping payment recheck", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
		return nil, nil
	}
	if !fire {
		return nil, nil
	}

	ps, err := s.checker.CheckPaymentStatus(ctx, app.ID)
	if err != nil {
		s.logger.Warn("payment status recheck failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
		return nil, nil
	}

	if ps.ApplicationStatus == app.Status {
		return nil, nil
	}

	refreshed, err := s.source.FetchApplication(ctx, app.ID)
	if err != nil {
		s.logger.Warn("re-fetch after status change failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
		copied := *app
		copied.Status = ps.ApplicationStatus
		refreshed = &copied
	}

	key := string(refreshed.Status) + ":" + refreshed.ID
	if s.toasts.ShouldShow(sessionID, key) {
		return refreshed, &Toast{
			Key:     key,
			Level:   "info",
			Message: statusToastMessage(refreshed.Status),
		}
	}
	return refreshed, nil
}

func (s *Service) buildView(app *models.Application, toasts []Toast) *View {
	now := s.now()
	view := &View{
		Application:     app,
		EligibleRenewal: IsEligibleForRenewal(app.FechaVencimiento, now),
		ExpiringSoon:    IsExpiringSoon(app.FechaVencimiento, now),
		Toasts:          toasts,
	}
	if app.FechaVencimiento != nil {
		days := DaysUntilExpiry(*app.FechaVencimiento, now)
		view.DaysUntilExpiry = &days
	}
	view.PrimaryAction = derivePrimaryAction(app.Status, view.EligibleRenewal)
	return view
}

// derivePrimaryAction is the fixed status-to-action mapping. Statuses not
// listed are treated as still in flight.
func derivePrimaryAction(status models.ApplicationStatus, eligibleRenewal bool) PrimaryAction {
	switch status {
	case models.StatusAwaitingOxxoPayment:
		return ActionShowVoucher
	case models.StatusPermitReady, models.StatusCompleted:
		if eligibleRenewal {
			return ActionRenew
		}
		return ActionDownload
	case models.StatusRejected:
		return ActionSupport
	default:
		return ActionWait
	}
}

func statusToastMessage(status models.ApplicationStatus) string {
	switch status {
	case models.StatusPaymentReceived:
		return "Tu pago fue recibido. Estamos generando tu permiso."
	case models.StatusPermitReady, models.StatusCompleted:
		return "Tu permiso está listo para descargar."
	case models.StatusRejected:
		return "Tu solicitud fue rechazada. Contacta a soporte."
	default:
		return "El estado de tu solicitud cambió a " + string(status) + "."
	}
}

// DocumentFilename builds the download filename, preferring the folio over
// the raw application id.
func DocumentFilename(docType models.DocumentType, folio, applicationID string) string {
	ref := folio
	if ref == "" {
		ref = applicationID
	}
	return fmt.Sprintf("%s_%s.pdf", docType, ref)
}
