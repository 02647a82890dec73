package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"go.uber.org/zap"
)

// Sender delivers encoded messages.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPConfig locates the outbound relay.
type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	// StartTLS upgrades the connection before authenticating.
	StartTLS bool
	// Timeout bounds one delivery, dial included.
	Timeout time.Duration
}

const defaultSMTPTimeout = 30 * time.Second

// SMTPMailer relays messages through an SMTP server.
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer creates a mailer. PLAIN auth is used only when a username is set.
func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) *SMTPMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send delivers msg within the configured timeout. Cancelling ctx closes the
// connection and aborts the transaction.
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if msg == nil || len(msg.To) == 0 {
		return errors.New("mail: message has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	dialer := net.Dialer{Timeout: m.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.cfg.Addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", m.cfg.Addr, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := m.newClient(conn)
	if err != nil {
		return m.wrap(ctx, msg, err)
	}
	defer client.Close()

	if m.cfg.Username != "" {
		if err := client.Auth(sasl.NewPlainClient("", m.cfg.Username, m.cfg.Password)); err != nil {
			return m.wrap(ctx, msg, err)
		}
	}
	if err := client.SendMail(msg.From, msg.To, bytes.NewReader(msg.Raw)); err != nil {
		return m.wrap(ctx, msg, err)
	}
	if err := client.Quit(); err != nil {
		m.logger.Debug("smtp quit", zap.Error(err))
	}

	m.logger.Debug("mail relayed", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (m *SMTPMailer) newClient(conn net.Conn) (*smtp.Client, error) {
	var client *smtp.Client
	if m.cfg.StartTLS {
		host, _, err := net.SplitHostPort(m.cfg.Addr)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		if client, err = smtp.NewClientStartTLS(conn, &tls.Config{ServerName: host}); err != nil {
			return nil, err
		}
	} else {
		client = smtp.NewClient(conn)
	}
	client.CommandTimeout = m.cfg.Timeout
	client.SubmissionTimeout = m.cfg.Timeout
	return client, nil
}

// wrap prefers the context error when the connection was closed by cancellation.
func (m *SMTPMailer) wrap(ctx context.Context, msg *Message, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("smtp send to %v: %w", msg.To, cerr)
	}
	return fmt.Errorf("smtp send to %v: %w", msg.To, err)
}
