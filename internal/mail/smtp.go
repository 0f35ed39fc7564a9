package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"doc-library/internal/logging"
)

// ErrNotConfigured is returned when mail is enabled without an SMTP host.
var ErrNotConfigured = errors.New("smtp not configured")

// SMTPConfig holds SMTP settings. Port 465 uses implicit TLS; any other
// port upgrades with STARTTLS when the server offers it.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Enabled  bool
	Timeout  time.Duration
}

// SMTPMailer sends mail over SMTP.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPMailer{cfg: cfg}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if !s.cfg.Enabled {
		// Body is not logged: it may hold a credential.
		logging.Ctx(ctx).Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("mail disabled, not sent")
		return nil
	}
	if s.cfg.Host == "" {
		return ErrNotConfigured
	}

	raw, err := msg.Bytes(s.cfg.From)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if !s.implicitTLS() {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(s.tlsConfig()); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}

	if s.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp server does not support AUTH")
		}
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp RCPT: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return c.Quit()
}

func (s *SMTPMailer) implicitTLS() bool {
	return s.cfg.Port == 465
}

func (s *SMTPMailer) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
}

func (s *SMTPMailer) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	nd := &net.Dialer{Timeout: s.cfg.Timeout}
	if s.implicitTLS() {
		d := &tls.Dialer{NetDialer: nd, Config: s.tlsConfig()}
		return d.DialContext(ctx, "tcp", addr)
	}
	return nd.DialContext(ctx, "tcp", addr)
}
