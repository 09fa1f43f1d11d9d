package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrRecipientNotAllowed is returned when an allowlist is configured and the
// recipient is not on it.
var ErrRecipientNotAllowed = errors.New("recipient not allowed")

type Config struct {
	BaseURL    string
	Username   string
	Password   string
	TemplateID int
	Allowlist  []string
}

type Client struct {
	config Config
	http   *http.Client
}

func New(cfg Config) *Client {
	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type txRequest struct {
	SubscriberEmail string            `json:"subscriber_email"`
	TemplateID      int               `json:"template_id"`
	Subject         string            `json:"subject,omitempty"`
	Data            map[string]string `json:"data"`
	ContentType     string            `json:"content_type"`
}

// ParseAllowlist splits a comma-separated list of addresses and "@domain"
// entries.
func ParseAllowlist(raw string) []string {
	var out []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func (c *Client) allowed(toEmail string) bool {
	if len(c.config.Allowlist) == 0 {
		return true
	}
	addr := strings.ToLower(strings.TrimSpace(toEmail))
	for _, entry := range c.config.Allowlist {
		if strings.HasPrefix(entry, "@") {
			if strings.HasSuffix(addr, entry) {
				return true
			}
			continue
		}
		if addr == entry {
			return true
		}
	}
	return false
}

// SendHTML delivers an HTML body through the transactional template. The
// template is expected to render {{ .Tx.Data.html }}.
func (c *Client) SendHTML(ctx context.Context, toEmail, subject, htmlBody string) error {
	if !c.allowed(toEmail) {
		return ErrRecipientNotAllowed
	}

	if c.config.BaseURL == "" {
		slog.Info("email not configured, dropping message", "to", toEmail, "subject", subject, "bytes", len(htmlBody))
		return nil
	}

	body := txRequest{
		SubscriberEmail: toEmail,
		TemplateID:      c.config.TemplateID,
		Subject:         subject,
		Data: map[string]string{
			"subject": subject,
			"html":    htmlBody,
		},
		ContentType: "html",
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/tx", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("listmonk returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return nil
}
