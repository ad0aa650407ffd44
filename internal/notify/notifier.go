// internal/notify/notifier.go

// Package notify delivers payment receipts after a successful submission.
// Delivery is best effort and config gated; the confirmation never waits on
// it.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	"permit-portal/internal/common/config"
	"permit-portal/internal/common/logger"
	"permit-portal/internal/models"
)

// SESService is the email capability, satisfied by the AWS SES client.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService is the SMS capability, satisfied by the AWS SNS client.
type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier sends receipt email and, when enabled, a confirmation SMS.
type Notifier struct {
	cfg    config.NotificationConfig
	ses    SESService
	sns    SNSService
	logger logger.Logger
}

// New builds a notifier with real AWS clients for the configured region.
func New(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	n := &Notifier{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
	if !cfg.Email.Enabled && !cfg.SMS.Enabled {
		return n, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	n.ses = ses.NewFromConfig(awsCfg)
	n.sns = sns.NewFromConfig(awsCfg)
	return n, nil
}

// NewWithClients injects the AWS capabilities directly.
func NewWithClients(cfg config.NotificationConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// SendReceipt emails the submission receipt. Disabled delivery is a no-op,
// not an error.
func (n *Notifier) SendReceipt(ctx context.Context, email string, app *models.Application, method models.PaymentMethod) error {
	if !n.cfg.Email.Enabled || n.ses == nil {
		n.logger.Debug("receipt email disabled, skipping", map[string]interface{}{
			"applicationId": app.ID,
		})
		return nil
	}

	messageID := uuid.New().String()
	subject := "Confirmación de solicitud de permiso"
	body := n.receiptBody(app, method)

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{email},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send receipt email: %w", err)
	}

	n.logger.Info("receipt email sent", map[string]interface{}{
		"applicationId": app.ID,
		"messageId":     messageID,
	})
	return nil
}

// SendStatusSMS publishes a short status message to the citizen's phone.
func (n *Notifier) SendStatusSMS(ctx context.Context, phone string, app *models.Application) error {
	if !n.cfg.SMS.Enabled || n.sns == nil || phone == "" {
		return nil
	}

	message := fmt.Sprintf("Tu solicitud %s cambió a estado %s.", reference(app), app.Status)
	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("publish status sms: %w", err)
	}

	n.logger.Info("status sms sent", map[string]interface{}{
		"applicationId": app.ID,
	})
	return nil
}

func (n *Notifier) receiptBody(app *models.Application, method models.PaymentMethod) string {
	lines := fmt.Sprintf(
		"Recibimos tu solicitud de permiso.\n\nSolicitud: %s\nVehículo: %s %s\nMétodo de pago: %s\nImporte: $%.2f MXN\n",
		reference(app), app.Marca, app.Linea, paymentLabel(method), app.Importe,
	)
	if method == models.PaymentOxxo {
		lines += "\nTu permiso se emitirá cuando OXXO confirme el pago de tu ficha.\n"
	}
	return lines
}

func paymentLabel(method models.PaymentMethod) string {
	if method == models.PaymentOxxo {
		return "Pago en OXXO"
	}
	return "Tarjeta"
}

func reference(app *models.Application) string {
	if app.Folio != "" {
		return app.Folio
	}
	return app.ID
}
