// Package notify emails gauge readings.
//
// Every parsed reading produces one message: a status report, or a warning
// when the level is at or below the alert threshold. The processed gauge image
// is embedded inline and referenced from the HTML body as cid:gauge_image.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/ironsheep/oil-level-monitor/internal/config"
	"github.com/ironsheep/oil-level-monitor/internal/gauge"
)

// ContentID identifies the inline gauge image.
const ContentID = "gauge_image"

const (
	fromName = "Oil Monitor"
	// timeLayout matches the reading log.
	timeLayout = "2006-01-02 15:04:05"

	colorWarning = "#dc3545"
	colorOK      = "#28a745"
	colorHeader  = "#007bff"
)

// Sender delivers built messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer builds and sends reading emails.
type Mailer struct {
	cfg       config.SMTPConfig
	threshold int
	sender    Sender
	logger    zerolog.Logger
}

// New creates a mailer that connects to cfg.Server with mandatory STARTTLS.
// Authentication is used only when both username and password are set.
func New(cfg config.SMTPConfig, threshold int, logger zerolog.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSMandatory),
		mail.WithPort(cfg.Port),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return NewWithSender(cfg, threshold, client, logger), nil
}

// NewWithSender creates a mailer that hands messages to sender.
func NewWithSender(cfg config.SMTPConfig, threshold int, sender Sender, logger zerolog.Logger) *Mailer {
	return &Mailer{
		cfg:       cfg,
		threshold: threshold,
		sender:    sender,
		logger:    logger.With().Str("component", "notify").Logger(),
	}
}

// Notify sends the status or warning email for r.
func (m *Mailer) Notify(ctx context.Context, r *gauge.Reading, status gauge.Status) error {
	msg, err := m.BuildMessage(r, status == gauge.StatusWarning)
	if err != nil {
		return err
	}

	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email via %s:%d: %w", m.cfg.Server, m.cfg.Port, err)
	}

	m.logger.Info().
		Str("recipient", m.cfg.Recipient).
		Str("status", status.String()).
		Msg("Email sent")
	return nil
}

// Subject returns the subject line for a reading.
func Subject(percentage int, warning bool) string {
	if warning {
		return fmt.Sprintf("⚠️ LOW OIL WARNING: %d%% Remaining ⚠️", percentage)
	}
	return fmt.Sprintf("📊 Oil Level Status: %d%%", percentage)
}

// BuildMessage assembles the multipart message for r without sending it.
// The image at r.SourceImagePath is embedded when the file exists.
func (m *Mailer) BuildMessage(r *gauge.Reading, warning bool) (*mail.Msg, error) {
	if r == nil || r.Percentage == nil {
		return nil, errors.New("cannot email a reading without a percentage")
	}

	data := emailData{
		Warning:    warning,
		Percentage: *r.Percentage,
		Threshold:  m.threshold,
		Time:       r.Timestamp.Format(timeLayout),
		StatusText: "OK",
		Color:      colorOK,
		Header:     colorHeader,
	}
	if warning {
		data.StatusText = "LOW - ACTION REQUIRED"
		data.Color = colorWarning
		data.Header = colorWarning
	}

	image := r.SourceImagePath
	if image != "" {
		if _, err := os.Stat(image); err != nil {
			m.logger.Warn().Err(err).Str("path", image).Msg("Gauge image missing, sending without it")
			image = ""
		}
	}
	data.HasImage = image != ""

	html, text, err := render(data)
	if err != nil {
		return nil, err
	}

	// Relays without auth still need a From address
	from := m.cfg.Username
	if from == "" {
		from = m.cfg.Recipient
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(fromName, from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	if err := msg.To(m.cfg.Recipient); err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", m.cfg.Recipient, err)
	}
	msg.Subject(Subject(*r.Percentage, warning))
	msg.SetDateWithValue(r.Timestamp)
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	if image != "" {
		msg.EmbedFile(image,
			mail.WithFileName(filepath.Base(image)),
			mail.WithFileContentID(ContentID),
		)
	}

	return msg, nil
}

func render(data emailData) (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := htmlBody.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("failed to render HTML body: %w", err)
	}
	if err := textBody.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("failed to render text body: %w", err)
	}
	return hb.String(), tb.String(), nil
}
