package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func TestCreate_Success(t *testing.T) {
	h, mock, _ := newTestHandler(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), "Drone basics", testScript, []string{"hook"}, []string{}).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))

	body, _ := json.Marshal(createRequest{Name: "  Drone basics ", Script: testScript, Modes: []string{"hook"}})
	rec := serve(h, http.MethodPost, "/api/sessions", string(body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp createResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Name != "Drone basics" {
		t.Errorf("expected trimmed name, got %q", resp.Name)
	}
	if resp.ViewerURL != fmt.Sprintf("%s/session/%s?slide=1", testBaseURL, resp.ID) {
		t.Errorf("unexpected viewer URL %q", resp.ViewerURL)
	}
	if resp.CreatedAt != now.Format(time.RFC3339) {
		t.Errorf("expected createdAt %q, got %q", now.Format(time.RFC3339), resp.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestCreate_DefaultName(t *testing.T) {
	h, mock, _ := newTestHandler(t)

	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), defaultSessionName, "", []string{}, []string{}).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	rec := serve(h, http.MethodPost, "/api/sessions", `{}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"InvalidJSON", `{"name":`, http.StatusBadRequest},
		{"LongName", `{"name":"` + strings.Repeat("n", 201) + `"}`, http.StatusBadRequest},
		{"TooManyModes", `{"modes":[` + strings.TrimSuffix(strings.Repeat(`"m",`, 21), ",") + `]}`, http.StatusBadRequest},
		{"BadImageKey", `{"imageKeys":["../etc/passwd"]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock, _ := newTestHandler(t)

			rec := serve(h, http.MethodPost, "/api/sessions", tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unexpected database call: %v", err)
			}
		})
	}
}

func TestCreate_ScriptOverConfiguredLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()
	h := NewHandler(mock, &mockStorage{}, testBaseURL, 16)

	rec := serve(h, http.MethodPost, "/api/sessions", `{"script":"[Slide 1] this is far too long"}`)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status %d, got %d", http.StatusRequestEntityTooLarge, rec.Code)
	}
}

func TestGet_ReturnsParsedScript(t *testing.T) {
	h, mock, _ := newTestHandler(t)
	expectLoadSession(mock, "Drone basics", testScript, []string{"hook"}, []string{"sessions/x/page_001.png"})

	rec := serve(h, http.MethodGet, "/api/sessions/"+testSessionID, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Segments) != 2 || resp.Segments[1].Slide != 2 {
		t.Errorf("unexpected segments %+v", resp.Segments)
	}
	if len(resp.Images) != 1 || resp.Images[0] != "https://files.example.com/sessions/x/page_001.png" {
		t.Errorf("unexpected images %v", resp.Images)
	}
	if len(resp.MissingSupport.SlidesNeeded) != 2 || resp.MissingSupport.Props[0] != "drone" {
		t.Errorf("unexpected missing support %+v", resp.MissingSupport)
	}
	if resp.Script != testScript {
		t.Error("expected raw script in response")
	}
}

func TestGet_EmptyScriptHasEmptySegments(t *testing.T) {
	h, mock, _ := newTestHandler(t)
	expectLoadSession(mock, "Blank", "", []string{}, []string{})

	rec := serve(h, http.MethodGet, "/api/sessions/"+testSessionID, "")

	if !strings.Contains(rec.Body.String(), `"segments":[]`) {
		t.Errorf("expected empty segments array, got %s", rec.Body.String())
	}
}

func TestGet_NotFound(t *testing.T) {
	h, mock, _ := newTestHandler(t)
	mock.ExpectQuery(`SELECT name, script, modes, image_keys, created_at FROM sessions`).
		WithArgs(testSessionID).
		WillReturnError(pgx.ErrNoRows)

	rec := serve(h, http.MethodGet, "/api/sessions/"+testSessionID, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if detail := decodeDetail(t, rec); detail != "Session not found" {
		t.Errorf("unexpected detail %q", detail)
	}
}

func TestGet_PresignFailure(t *testing.T) {
	h, mock, store := newTestHandler(t)
	store.downloadErr = errors.New("presign failed")
	expectLoadSession(mock, "Deck", testScript, []string{}, []string{"sessions/x/page_001.png"})

	rec := serve(h, http.MethodGet, "/api/sessions/"+testSessionID, "")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestSlide_ClassifiesCurrentSegment(t *testing.T) {
	h, mock, _ := newTestHandler(t)
	expectLoadSession(mock, "Deck", testScript, []string{"hook"}, []string{"sessions/x/page_001.png", "sessions/x/page_002.png"})

	rec := serve(h, http.MethodGet, "/api/sessions/"+testSessionID+"/slides/2", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Slide    int    `json:"slide"`
		Counter  string `json:"counter"`
		Image    string `json:"image"`
		HasPrev  bool   `json:"hasPrev"`
		HasNext  bool   `json:"hasNext"`
		Sections []struct {
			Key   string `json:"key"`
			Items []struct {
				Summary string `json:"summary"`
				Purpose string `json:"purpose"`
			} `json:"items"`
		} `json:"sections"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Slide != 2 || resp.Counter != "2 / 2" {
		t.Errorf("unexpected position %d %q", resp.Slide, resp.Counter)
	}
	if !strings.HasSuffix(resp.Image, "page_002.png") {
		t.Errorf("unexpected image %q", resp.Image)
	}
	if !resp.HasPrev || resp.HasNext {
		t.Errorf("unexpected navigation flags prev=%v next=%v", resp.HasPrev, resp.HasNext)
	}
	if len(resp.Sections) != 1 || resp.Sections[0].Key != "hook" {
		t.Fatalf("expected only the hook section, got %+v", resp.Sections)
	}
	if len(resp.Sections[0].Items) != 2 {
		t.Fatalf("expected 2 hook items, got %+v", resp.Sections[0].Items)
	}
	if resp.Sections[0].Items[0].Purpose != "warm up the room" {
		t.Errorf("unexpected purpose %q", resp.Sections[0].Items[0].Purpose)
	}
}

func TestSlide_OutOfRange(t *testing.T) {
	for _, n := range []string{"0", "3"} {
		t.Run(n, func(t *testing.T) {
			h, mock, _ := newTestHandler(t)
			expectLoadSession(mock, "Deck", testScript, []string{}, []string{})

			rec := serve(h, http.MethodGet, "/api/sessions/"+testSessionID+"/slides/"+n, "")

			if rec.Code != http.StatusNotFound {
				t.Errorf("expected status 404, got %d", rec.Code)
			}
		})
	}
}

func TestSlide_InvalidNumber(t *testing.T) {
	h, mock, _ := newTestHandler(t)

	rec := serve(h, http.MethodGet, "/api/sessions/"+testSessionID+"/slides/two", "")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database call: %v", err)
	}
}

func TestImageUploadURL_ReservesNextPage(t *testing.T) {
	h, mock, store := newTestHandler(t)

	mock.ExpectQuery(`SELECT cardinality\(image_keys\) FROM sessions WHERE id = \$1`).
		WithArgs(testSessionID).
		WillReturnRows(pgxmock.NewRows([]string{"cardinality"}).AddRow(2))
	wantKey := "sessions/" + testSessionID + "/page_003.png"
	mock.ExpectExec(`UPDATE sessions SET image_keys = array_append\(image_keys, \$2\)`).
		WithArgs(testSessionID, wantKey).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	rec := serve(h, http.MethodPost, "/api/sessions/"+testSessionID+"/images", `{"contentLength": 2048}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Page != 3 || resp.Key != wantKey || store.uploadKey != wantKey {
		t.Errorf("unexpected upload response %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestImageUploadURL_RequiresContentLength(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(h, http.MethodPost, "/api/sessions/"+testSessionID+"/images", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestImageUploadURL_UnknownSession(t *testing.T) {
	h, mock, _ := newTestHandler(t)
	mock.ExpectQuery(`SELECT cardinality`).
		WithArgs(testSessionID).
		WillReturnError(pgx.ErrNoRows)

	rec := serve(h, http.MethodPost, "/api/sessions/"+testSessionID+"/images", `{"contentLength": 10}`)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestImageUploadURL_PresignRejected(t *testing.T) {
	h, mock, store := newTestHandler(t)
	store.uploadErr = errors.New("image too large")
	mock.ExpectQuery(`SELECT cardinality`).
		WithArgs(testSessionID).
		WillReturnRows(pgxmock.NewRows([]string{"cardinality"}).AddRow(0))

	rec := serve(h, http.MethodPost, "/api/sessions/"+testSessionID+"/images", `{"contentLength": 999999999}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestDelete_RemovesOwnedImages(t *testing.T) {
	h, mock, store := newTestHandler(t)
	keys := []string{
		"sessions/" + testSessionID + "/page_001.png",
		"sessions/other/page_001.png",
		"sessions/" + testSessionID + "/page_002.png",
	}
	mock.ExpectQuery(`DELETE FROM sessions`).
		WithArgs(testSessionID).
		WillReturnRows(pgxmock.NewRows([]string{"image_keys"}).AddRow(keys))

	rec := serve(h, http.MethodDelete, "/api/sessions/"+testSessionID, "")

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.deleted) != 2 || store.deleted[0] != keys[0] || store.deleted[1] != keys[2] {
		t.Errorf("expected only this session's images deleted, got %v", store.deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestDelete_StorageFailureStillSucceeds(t *testing.T) {
	h, mock, store := newTestHandler(t)
	store.deleteErr = errors.New("bucket unavailable")
	mock.ExpectQuery(`DELETE FROM sessions`).
		WithArgs(testSessionID).
		WillReturnRows(pgxmock.NewRows([]string{"image_keys"}).AddRow([]string{"sessions/" + testSessionID + "/page_001.png"}))

	rec := serve(h, http.MethodDelete, "/api/sessions/"+testSessionID, "")

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
}

func TestDelete_NotFound(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"InvalidID", "not-a-uuid"},
		{"MissingRow", testSessionID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock, store := newTestHandler(t)
			if tt.id == testSessionID {
				mock.ExpectQuery(`DELETE FROM sessions`).
					WithArgs(testSessionID).
					WillReturnError(pgx.ErrNoRows)
			}

			rec := serve(h, http.MethodDelete, "/api/sessions/"+tt.id, "")

			if rec.Code != http.StatusNotFound {
				t.Errorf("expected status 404, got %d", rec.Code)
			}
			if got := decodeDetail(t, rec); got != "Session not found" {
				t.Errorf("unexpected detail %q", got)
			}
			if len(store.deleted) != 0 {
				t.Errorf("expected no storage calls, got %v", store.deleted)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet pgxmock expectations: %v", err)
			}
		})
	}
}
