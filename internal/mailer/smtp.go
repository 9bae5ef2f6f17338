package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Addr returns the host:port address of the SMTP server.
func (c SMTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SMTPSender delivers mail through an SMTP server. Authentication is used
// only when a username is configured, so a local MailHog-style relay works
// without credentials.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates an SMTP-backed sender.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Name returns the name of this sender.
func (s *SMTPSender) Name() string {
	return "smtp"
}

// Send delivers the message. The context deadline is honored for the dial;
// net/smtp does not support cancellation mid-session.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	payload := buildPayload(s.cfg.From, msg)
	if err := smtp.SendMail(s.cfg.Addr(), auth, s.cfg.From, []string{msg.To}, payload); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}

	return nil
}

// buildPayload assembles the RFC 5322 message bytes.
func buildPayload(from string, msg *Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
