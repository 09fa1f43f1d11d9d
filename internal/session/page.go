package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gosimple/slug"
	"github.com/slidecue/slidecue/internal/dispatch"
	"github.com/slidecue/slidecue/internal/httputil"
	"github.com/slidecue/slidecue/internal/viewer"
)

const noScriptText = "No script available."

// Page renders the viewer for /session/{id}?slide=N. Unknown or out of range
// slide numbers fall back to the first slide.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	rec, err := h.load(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, errSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("viewer: load session failed", "error", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	images, err := h.imageURLs(r.Context(), rec.ImageKeys)
	if err != nil {
		slog.Error("viewer: presign images failed", "session_id", rec.ID, "error", err)
		images = nil
	}

	state := viewer.NewState(images, rec.Script, rec.Modes)
	if n, err := strconv.Atoi(r.URL.Query().Get("slide")); err == nil {
		state.Goto(n - 1)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err = viewer.RenderPage(w, viewer.PageData{
		Title:     rec.Name,
		SessionID: rec.ID,
		State:     state,
		Nonce:     httputil.NonceFromContext(r.Context()),
		Subject:   dispatch.Subject(state.Slide()),
	})
	if err != nil {
		slog.Error("viewer: render page failed", "session_id", rec.ID, "error", err)
	}
}

// Download serves the raw script as a text attachment.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	rec, err := h.load(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, errSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("download: load session failed", "error", err)
		http.Error(w, "failed to load session", http.StatusInternalServerError)
		return
	}

	body := rec.Script
	if strings.TrimSpace(body) == "" {
		body = noScriptText
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, scriptFilename(rec)))
	_, _ = w.Write([]byte(body))
}

func scriptFilename(rec *record) string {
	name := slug.Make(rec.Name)
	if name == "" {
		name = rec.ID
	}
	return "script_" + name + ".txt"
}
