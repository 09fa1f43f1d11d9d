package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slidecue/slidecue/internal/database"
)

// ObjectStorage presigns and removes slide images. *storage.Storage
// satisfies it.
type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string, contentLength int64, expiry time.Duration) (string, error)
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	DeleteObjects(ctx context.Context, keys []string) error
}

var errSessionNotFound = errors.New("session not found")

const (
	imageURLExpiry  = 1 * time.Hour
	uploadURLExpiry = 15 * time.Minute
	requestOverhead = 64 * 1024
)

type Handler struct {
	db             database.DBTX
	storage        ObjectStorage
	baseURL        string
	maxScriptBytes int64
}

// NewHandler serves the session, viewer and transcript routes. A
// maxScriptBytes of zero keeps the default script length limit.
func NewHandler(db database.DBTX, s ObjectStorage, baseURL string, maxScriptBytes int64) *Handler {
	return &Handler{
		db:             db,
		storage:        s,
		baseURL:        baseURL,
		maxScriptBytes: maxScriptBytes,
	}
}

// record is one row of the sessions table.
type record struct {
	ID        string
	Name      string
	Script    string
	Modes     []string
	ImageKeys []string
	CreatedAt time.Time
}

func (h *Handler) load(ctx context.Context, id string) (*record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errSessionNotFound
	}

	rec := &record{ID: id}
	err := h.db.QueryRow(ctx,
		`SELECT name, script, modes, image_keys, created_at FROM sessions WHERE id = $1`,
		id,
	).Scan(&rec.Name, &rec.Script, &rec.Modes, &rec.ImageKeys, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return rec, nil
}

// imageURLs presigns every image key in slide order.
func (h *Handler) imageURLs(ctx context.Context, keys []string) ([]string, error) {
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		url, err := h.storage.GenerateDownloadURL(ctx, key, imageURLExpiry)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}
