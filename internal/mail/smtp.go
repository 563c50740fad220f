package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/keyxmakerx/elearning/internal/config"
)

// dialTimeout bounds the TCP connect to the SMTP server.
const dialTimeout = 10 * time.Second

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	cfg config.MailConfig
	now func() time.Time
}

// NewSMTPSender creates an SMTPSender from the mail config.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, now: time.Now}
}

// Send renders msg and delivers it using the configured encryption mode.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	body, err := Render(ctx, msg)
	if err != nil {
		return err
	}

	from := s.fromAddress()
	raw := s.buildMessage(from, msg.To, msg.Subject, body)
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	switch s.cfg.Encryption {
	case "ssl":
		err = s.sendSSL(ctx, addr, from.Address, msg.To, raw)
	case "none":
		err = s.sendPlain(ctx, addr, from.Address, msg.To, raw, false)
	default: // "starttls"
		err = s.sendPlain(ctx, addr, from.Address, msg.To, raw, true)
	}
	if err != nil {
		return fmt.Errorf("sending %s to %s: %w", msg.Template, msg.To, err)
	}

	slog.Info("mail sent",
		slog.String("to", msg.To),
		slog.String("template", msg.Template),
	)
	return nil
}

func (s *SMTPSender) fromAddress() mail.Address {
	return mail.Address{Name: s.cfg.FromName, Address: s.cfg.FromEmail}
}

// buildMessage assembles an RFC 5322 message with an HTML body.
func (s *SMTPSender) buildMessage(from mail.Address, to, subject, body string) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", sanitizeHeader(subject)))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", s.now().UTC().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

// sendPlain connects without TLS and optionally upgrades with STARTTLS
// (port 587 typical).
func (s *SMTPSender) sendPlain(ctx context.Context, addr, from, to, msg string, startTLS bool) error {
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if startTLS {
		tlsConfig := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starting TLS: %w", err)
		}
	}

	return s.authAndSend(client, from, to, msg)
}

// sendSSL sends email using implicit SSL/TLS (port 465 typical).
func (s *SMTPSender) sendSSL(ctx context.Context, addr, from, to, msg string) error {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: dialTimeout},
		Config:    &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s (SSL): %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	return s.authAndSend(client, from, to, msg)
}

// authAndSend authenticates if credentials are set, then runs MAIL FROM,
// RCPT TO and DATA.
func (s *SMTPSender) authAndSend(client *gosmtp.Client, from, to, msg string) error {
	if s.cfg.Username != "" {
		auth := gosmtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

// sanitizeHeader strips CR and LF so user-controlled text cannot inject
// extra headers.
func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
