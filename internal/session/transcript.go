package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slidecue/slidecue/internal/httputil"
)

const maxTranscriptBytes = 4 * 1024 * 1024

type transcriptItem struct {
	ID        string `json:"id"`
	Slides    int    `json:"slides"`
	UpdatedAt string `json:"updatedAt"`
}

// decodeSlides accepts only a JSON array. Anything else, including a body
// that does not parse, is reported the same way.
func decodeSlides(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	var slides []json.RawMessage
	if err := httputil.DecodeJSON(w, r, maxTranscriptBytes, &slides); err != nil || slides == nil {
		httputil.WriteError(w, http.StatusBadRequest, "Expected a list of slides")
		return nil, false
	}
	raw, err := json.Marshal(slides)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Expected a list of slides")
		return nil, false
	}
	return raw, true
}

func (h *Handler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(r.Context(),
		`SELECT id, jsonb_array_length(slides), updated_at FROM transcripts ORDER BY updated_at DESC`,
	)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list transcripts")
		return
	}
	defer rows.Close()

	items := make([]transcriptItem, 0)
	for rows.Next() {
		var item transcriptItem
		var updatedAt time.Time
		if err := rows.Scan(&item.ID, &item.Slides, &updatedAt); err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "failed to scan transcript")
			return
		}
		item.UpdatedAt = updatedAt.Format(time.RFC3339)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list transcripts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	var slides []byte
	err := h.db.QueryRow(r.Context(), `SELECT slides FROM transcripts WHERE id = $1`, id).Scan(&slides)
	if errors.Is(err, pgx.ErrNoRows) {
		httputil.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, json.RawMessage(slides))
}

func (h *Handler) CreateTranscript(w http.ResponseWriter, r *http.Request) {
	slides, ok := decodeSlides(w, r)
	if !ok {
		return
	}

	id := uuid.New().String()
	if _, err := h.db.Exec(r.Context(),
		`INSERT INTO transcripts (id, slides) VALUES ($1, $2)`,
		id, slides,
	); err != nil {
		slog.Error("transcript: create failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save transcript")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}

// UpdateTranscript replaces the slides of a transcript, creating it when the
// id is new.
func (h *Handler) UpdateTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid transcript id")
		return
	}

	slides, ok := decodeSlides(w, r)
	if !ok {
		return
	}

	if _, err := h.db.Exec(r.Context(),
		`INSERT INTO transcripts (id, slides) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET slides = EXCLUDED.slides, updated_at = now()`,
		id, slides,
	); err != nil {
		slog.Error("transcript: update failed", "transcript_id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save transcript")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "updated": true})
}
