package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultEmailJSEndpoint = "https://api.emailjs.com"
	emailJSSendPath        = "/api/v1.0/email/send"
	maxErrorBody           = 512
)

// EmailJSConfig carries the identifiers issued by the EmailJS dashboard.
type EmailJSConfig struct {
	PublicKey  string
	PrivateKey string // optional access token, required when "strict mode" is on
	ServiceID  string
	TemplateID string
	Endpoint   string
	Timeout    time.Duration
}

// EmailJS sends template e-mails through the EmailJS REST API.
type EmailJS struct {
	cfg    EmailJSConfig
	client *http.Client
}

type emailJSRequest struct {
	ServiceID      string  `json:"service_id"`
	TemplateID     string  `json:"template_id"`
	UserID         string  `json:"user_id"`
	TemplateParams Payload `json:"template_params"`
	AccessToken    string  `json:"accessToken,omitempty"`
}

// NewEmailJS builds a client. A nil httpClient gets a client with cfg.Timeout.
func NewEmailJS(cfg EmailJSConfig, httpClient *http.Client) *EmailJS {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEmailJSEndpoint
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &EmailJS{cfg: cfg, client: httpClient}
}

// IsConfigured reports whether all identifiers are present and not placeholders.
func (e *EmailJS) IsConfigured() bool {
	for _, v := range []string{e.cfg.PublicKey, e.cfg.ServiceID, e.cfg.TemplateID} {
		if v == "" || strings.HasPrefix(v, "YOUR_") {
			return false
		}
	}
	return true
}

// Send delivers the payload with the configured service and template.
func (e *EmailJS) Send(ctx context.Context, p Payload) error {
	return e.SendTemplate(ctx, e.cfg.ServiceID, e.cfg.TemplateID, p)
}

// SendTemplate delivers the payload with an explicit service and template id.
func (e *EmailJS) SendTemplate(ctx context.Context, serviceID, templateID string, p Payload) error {
	body, err := json.Marshal(emailJSRequest{
		ServiceID:      serviceID,
		TemplateID:     templateID,
		UserID:         e.cfg.PublicKey,
		TemplateParams: p,
		AccessToken:    e.cfg.PrivateKey,
	})
	if err != nil {
		return fmt.Errorf("encode emailjs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint+emailJSSendPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
