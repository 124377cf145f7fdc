package relay

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
)

// SMTPConfig is used when the site relays mail itself instead of EmailJS.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string // defaults to Username
	To       string
}

// SMTP sends the contact payload as an HTML e-mail over SMTP.
type SMTP struct {
	cfg      SMTPConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTP{cfg: cfg, sendMail: smtp.SendMail}
}

// IsConfigured checks if the SMTP credentials are present
func (s *SMTP) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.To != ""
}

var contactTemplate = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Portfolio contact</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <p>Hi {{.ToName}},</p>
  <p>New message from your portfolio contact form.</p>
  <p><strong>From:</strong> {{.FromName}} ({{.FromEmail}})</p>
  <div style="background: #f9f9f9; padding: 15px; border-left: 4px solid #14b8a6;">{{.Message}}</div>
  <p style="color: #888; font-size: 12px;">Reply to: {{.ReplyTo}}</p>
</body>
</html>`))

// Send renders and delivers the payload. net/smtp has no context support, so
// ctx is only checked before dialing.
func (s *SMTP) Send(ctx context.Context, p Payload) error {
	if !s.IsConfigured() {
		return fmt.Errorf("smtp credentials not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := s.buildMessage(p)
	if err != nil {
		return err
	}

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	if err := s.sendMail(addr, auth, s.cfg.From, []string{s.cfg.To}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *SMTP) buildMessage(p Payload) ([]byte, error) {
	var body bytes.Buffer
	if err := contactTemplate.Execute(&body, p); err != nil {
		return nil, fmt.Errorf("failed to execute email template: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", s.cfg.To)
	fmt.Fprintf(&msg, "Reply-To: %s\r\n", sanitizeHeader(p.ReplyTo))
	fmt.Fprintf(&msg, "Subject: Portfolio Contact: %s\r\n", sanitizeHeader(p.FromName))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// sanitizeHeader strips CR/LF so user input cannot inject extra headers.
func sanitizeHeader(v string) string {
	return string(bytes.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, []byte(v)))
}
