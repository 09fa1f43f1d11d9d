package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slidecue/slidecue/internal/auth"
	"github.com/slidecue/slidecue/internal/httputil"
	"github.com/slidecue/slidecue/internal/script"
	"github.com/slidecue/slidecue/internal/storage"
	"github.com/slidecue/slidecue/internal/validate"
	"github.com/slidecue/slidecue/internal/viewer"
)

const defaultSessionName = "Untitled session"

type createRequest struct {
	Name      string   `json:"name"`
	Script    string   `json:"script"`
	Modes     []string `json:"modes"`
	ImageKeys []string `json:"imageKeys"`
}

type createResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ViewerURL string `json:"viewerUrl"`
	CreatedAt string `json:"createdAt"`
}

// Response is the JSON form of a session returned by GET /api/sessions/{id}.
type Response struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Script         string                `json:"script"`
	Modes          []string              `json:"modes"`
	Images         []string              `json:"images"`
	Segments       []script.Segment      `json:"segments"`
	MissingSupport script.MissingSupport `json:"missingSupport"`
	CreatedAt      string                `json:"createdAt"`
}

// SlideResponse is the JSON form of one slide of a session.
type SlideResponse struct {
	Slide    int               `json:"slide"`
	Total    int               `json:"total"`
	Counter  string            `json:"counter"`
	Image    string            `json:"image,omitempty"`
	Segment  script.Segment    `json:"segment"`
	Sections script.SectionMap `json:"sections"`
	HasPrev  bool              `json:"hasPrev"`
	HasNext  bool              `json:"hasNext"`
}

func (h *Handler) scriptLimit() int64 {
	if h.maxScriptBytes > 0 {
		return h.maxScriptBytes
	}
	return validate.MaxScriptLength
}

func validImageKey(key string) bool {
	return strings.HasPrefix(key, "sessions/") && strings.HasSuffix(key, ".png") && !strings.Contains(key, "..")
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httputil.DecodeJSON(w, r, h.scriptLimit()+requestOverhead, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultSessionName
	}
	if msg := validate.SessionName(name); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if int64(len(req.Script)) > h.scriptLimit() {
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("script must be %d bytes or fewer", h.scriptLimit()))
		return
	}
	if msg := validate.Modes(req.Modes); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if len(req.ImageKeys) > validate.MaxImageKeys {
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images allowed", validate.MaxImageKeys))
		return
	}
	for _, key := range req.ImageKeys {
		if !validImageKey(key) {
			httputil.WriteError(w, http.StatusBadRequest, "invalid image key")
			return
		}
	}

	modes := req.Modes
	if modes == nil {
		modes = []string{}
	}
	imageKeys := req.ImageKeys
	if imageKeys == nil {
		imageKeys = []string{}
	}

	id := uuid.New().String()
	var createdAt time.Time
	err := h.db.QueryRow(r.Context(),
		`INSERT INTO sessions (id, name, script, modes, image_keys)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		id, name, req.Script, modes, imageKeys,
	).Scan(&createdAt)
	if err != nil {
		slog.Error("session: create failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	slog.Info("session created", "session_id", id, "operator", auth.OperatorFromContext(r.Context()), "segments", len(script.Split(req.Script)))

	httputil.WriteJSON(w, http.StatusCreated, createResponse{
		ID:        id,
		Name:      name,
		ViewerURL: h.baseURL + viewer.SlideURL(id, 1),
		CreatedAt: createdAt.Format(time.RFC3339),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadOrWriteError(w, r)
	if !ok {
		return
	}

	images, err := h.imageURLs(r.Context(), rec.ImageKeys)
	if err != nil {
		slog.Error("session: presign images failed", "session_id", rec.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate image URLs")
		return
	}

	segments := script.Split(rec.Script)
	if segments == nil {
		segments = []script.Segment{}
	}

	httputil.WriteJSON(w, http.StatusOK, Response{
		ID:             rec.ID,
		Name:           rec.Name,
		Script:         rec.Script,
		Modes:          rec.Modes,
		Images:         images,
		Segments:       segments,
		MissingSupport: script.ParseMissingSupport(rec.Script),
		CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) Slide(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid slide number")
		return
	}

	rec, ok := h.loadOrWriteError(w, r)
	if !ok {
		return
	}

	images, err := h.imageURLs(r.Context(), rec.ImageKeys)
	if err != nil {
		slog.Error("session: presign images failed", "session_id", rec.ID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate image URLs")
		return
	}

	state := viewer.NewState(images, rec.Script, rec.Modes)
	if !state.Goto(n - 1) {
		httputil.WriteError(w, http.StatusNotFound, "slide not found")
		return
	}

	resp := SlideResponse{
		Slide:    state.Slide(),
		Total:    state.Bound(),
		Counter:  state.Counter(),
		Sections: state.Sections(),
		HasPrev:  state.HasPrev(),
		HasNext:  state.HasNext(),
	}
	resp.Image, _ = state.CurrentImage()
	resp.Segment, _ = state.CurrentSegment()

	httputil.WriteJSON(w, http.StatusOK, resp)
}

type uploadRequest struct {
	ContentLength int64 `json:"contentLength"`
}

type uploadResponse struct {
	Page      int    `json:"page"`
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
}

// ImageUploadURL reserves the next page image key of a session and returns
// a presigned PUT URL for it.
func (h *Handler) ImageUploadURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req uploadRequest
	if err := httputil.DecodeJSON(w, r, requestOverhead, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ContentLength <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "contentLength is required")
		return
	}

	var count int
	if err := h.db.QueryRow(r.Context(),
		`SELECT cardinality(image_keys) FROM sessions WHERE id = $1`,
		id,
	).Scan(&count); err != nil {
		httputil.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	if count >= validate.MaxImageKeys {
		httputil.WriteError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images allowed", validate.MaxImageKeys))
		return
	}

	page := count + 1
	key := storage.ImageKey(id, page)
	uploadURL, err := h.storage.GenerateUploadURL(r.Context(), key, storage.ImageContentType, req.ContentLength, uploadURLExpiry)
	if err != nil {
		slog.Error("session: presign upload failed", "session_id", id, "error", err)
		httputil.WriteError(w, http.StatusBadRequest, "failed to generate upload URL")
		return
	}

	if _, err := h.db.Exec(r.Context(),
		`UPDATE sessions SET image_keys = array_append(image_keys, $2), updated_at = now() WHERE id = $1`,
		id, key,
	); err != nil {
		slog.Error("session: record image key failed", "session_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to record image")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, uploadResponse{Page: page, Key: key, UploadURL: uploadURL})
}

// Delete removes a session row and then its page images. Image cleanup
// failures are logged; the session is already gone at that point.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}

	var imageKeys []string
	err := h.db.QueryRow(r.Context(),
		`DELETE FROM sessions WHERE id = $1 RETURNING image_keys`,
		id,
	).Scan(&imageKeys)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		slog.Error("session: delete failed", "session_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	owned := make([]string, 0, len(imageKeys))
	for _, key := range imageKeys {
		if storage.IsSessionImageKey(id, key) {
			owned = append(owned, key)
		}
	}
	if err := h.storage.DeleteObjects(r.Context(), owned); err != nil {
		slog.Warn("session: image cleanup failed", "session_id", id, "images", len(owned), "error", err)
	}

	slog.Info("session deleted", "session_id", id, "operator", auth.OperatorFromContext(r.Context()), "images", len(owned))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadOrWriteError(w http.ResponseWriter, r *http.Request) (*record, bool) {
	rec, err := h.load(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, errSessionNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	if err != nil {
		slog.Error("session: load failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return rec, true
}
