package email

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/slidecue/slidecue/internal/httputil"
	"github.com/slidecue/slidecue/internal/validate"
)

const (
	DefaultSubject  = "MEET Session Transcript"
	maxRequestBytes = validate.MaxEmailHTMLLength + 64*1024
)

// Sender is anything that can deliver an HTML email.
type Sender interface {
	SendHTML(ctx context.Context, toEmail, subject, htmlBody string) error
}

type relayRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// RelayHandler serves POST /api/email for the viewer page and the send CLI.
type RelayHandler struct {
	sender Sender
}

func NewRelayHandler(sender Sender) *RelayHandler {
	return &RelayHandler{sender: sender}
}

func (h *RelayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req relayRequest
	if err := httputil.DecodeJSON(w, r, maxRequestBytes, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	to := strings.TrimSpace(req.To)
	if to == "" || strings.TrimSpace(req.HTML) == "" {
		httputil.WriteError(w, http.StatusBadRequest, "to & html required")
		return
	}
	if _, err := mail.ParseAddress(to); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = DefaultSubject
	}
	if msg := validate.Subject(subject); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validate.EmailHTML(req.HTML); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	body := strings.ReplaceAll(req.HTML, "\u00a0", " ")
	if err := h.sender.SendHTML(r.Context(), to, subject, body); err != nil {
		if errors.Is(err, ErrRecipientNotAllowed) {
			httputil.WriteError(w, http.StatusForbidden, "recipient not allowed")
			return
		}
		slog.Error("email relay: send failed", "to", to, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
