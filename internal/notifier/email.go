package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/nitesh/bill_monitor/pkg/models"
)

const DefaultFromName = "Законодавчий Монітор"

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	To       []string
	Timeout  time.Duration
	// Location is the zone of the report date, UTC when nil.
	Location *time.Location
}

// EmailNotifier renders digests as HTML and sends them over implicit-TLS SMTP.
type EmailNotifier struct {
	cfg    EmailConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewEmailNotifier(cfg EmailConfig, logger *zap.Logger) (*EmailNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("at least one digest recipient is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	if cfg.FromName == "" {
		cfg.FromName = DefaultFromName
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailNotifier{cfg: cfg, logger: logger, now: time.Now}, nil
}

// Message builds the digest mail without sending it.
func (n *EmailNotifier) Message(bills []models.DigestBill) (*mail.Msg, error) {
	day := n.now().In(n.cfg.Location)
	html, err := Render(bills, day)
	if err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.FromFormat(n.cfg.FromName, n.cfg.Username); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := m.To(n.cfg.To...); err != nil {
		return nil, fmt.Errorf("set recipients: %w", err)
	}
	m.Subject(Subject(day))
	m.SetBodyString(mail.TypeTextHTML, html)
	m.AddAlternativeString(mail.TypeTextPlain, RenderText(bills, day))
	return m, nil
}

func (n *EmailNotifier) Send(ctx context.Context, bills []models.DigestBill) error {
	m, err := n.Message(bills)
	if err != nil {
		return &NotificationError{Recipients: n.cfg.To, Bills: len(bills), Err: err}
	}

	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
		mail.WithTimeout(n.cfg.Timeout),
	)
	if err != nil {
		return &NotificationError{Recipients: n.cfg.To, Bills: len(bills), Err: fmt.Errorf("smtp client: %w", err)}
	}

	n.logger.Info("sending digest email", zap.String("host", n.cfg.Host), zap.Int("bills", len(bills)), zap.Strings("to", n.cfg.To))
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		n.logger.Error("digest email failed", zap.String("host", n.cfg.Host), zap.Error(err))
		return &NotificationError{Recipients: n.cfg.To, Bills: len(bills), Err: err}
	}
	n.logger.Info("digest email sent", zap.Int("bills", len(bills)))
	return nil
}
