package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	emailPath     = "/api/email"
	genericDetail = "Send failed"
	maxErrorBody  = 4096
)

// ErrNoRecipient is wrapped by the SendError returned when the recipient is
// empty or the prompt was cancelled.
var ErrNoRecipient = errors.New("recipient required")

// SendError reports a failed send. Detail is the best message available:
// the server's detail string, the transport error, or a generic text.
type SendError struct {
	Status int
	Detail string
	Err    error
}

func (e *SendError) Error() string {
	return e.Detail
}

func (e *SendError) Unwrap() error {
	return e.Err
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Client posts viewer content to the email endpoint of a SlideCue server.
type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has no timeout; bound a
// send with ctx or a client Timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subject is the mail subject the viewer uses for a 1-based slide.
func Subject(slide int) string {
	return fmt.Sprintf("MEET Script — Slide %d", slide)
}

// Send makes exactly one POST per call. A blank recipient fails before any
// request is made. There is no retry.
func (c *Client) Send(ctx context.Context, to, subject, htmlBody string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return &SendError{Detail: ErrNoRecipient.Error(), Err: ErrNoRecipient}
	}

	body, err := json.Marshal(emailRequest{To: to, Subject: subject, HTML: htmlBody})
	if err != nil {
		return &SendError{Detail: genericDetail, Err: fmt.Errorf("marshal email request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+emailPath, bytes.NewReader(body))
	if err != nil {
		return &SendError{Detail: genericDetail, Err: fmt.Errorf("create email request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &SendError{Detail: err.Error(), Err: fmt.Errorf("send email: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail := genericDetail
	var errResp errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(raw, &errResp) == nil && errResp.Detail != "" {
		detail = errResp.Detail
	}
	return &SendError{
		Status: resp.StatusCode,
		Detail: detail,
		Err:    fmt.Errorf("email endpoint returned status %d", resp.StatusCode),
	}
}
