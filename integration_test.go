package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"shopfront/pkg/cache"
	httphandlers "shopfront/pkg/http"
	"shopfront/pkg/logging"
	"shopfront/pkg/middleware"
	"shopfront/pkg/security"
	"shopfront/pkg/service"
	"shopfront/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations for testing

type mockLinkStorage struct {
	mu    sync.Mutex
	links map[string]*storage.LockedLink
}

func newMockLinkStorage() *mockLinkStorage {
	return &mockLinkStorage{links: make(map[string]*storage.LockedLink)}
}

func (m *mockLinkStorage) Create(ctx context.Context, link *storage.LockedLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.links[link.Slug]; exists {
		return &pgconn.PgError{Code: "23505"}
	}
	link.CreatedAt = time.Now()
	link.UpdatedAt = link.CreatedAt
	cp := *link
	m.links[link.Slug] = &cp
	return nil
}

func (m *mockLinkStorage) GetBySlug(ctx context.Context, slug string) (*storage.LockedLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, exists := m.links[slug]
	if !exists {
		return nil, nil
	}
	cp := *link
	return &cp, nil
}

func (m *mockLinkStorage) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*storage.LockedLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*storage.LockedLink{}
	for _, link := range m.links {
		if link.OwnerID == ownerID {
			cp := *link
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockLinkStorage) ConsumeUse(ctx context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, exists := m.links[slug]
	if !exists {
		return false, nil
	}
	if link.MaxUses != nil && link.UsesCount >= *link.MaxUses {
		return false, nil
	}
	link.UsesCount++
	return true, nil
}

func (m *mockLinkStorage) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for slug, link := range m.links {
		if link.ID == id {
			delete(m.links, slug)
		}
	}
	return nil
}

type mockLinkCache struct{}

func (m *mockLinkCache) Get(ctx context.Context, slug string) (*cache.CachedLink, error) {
	return nil, nil
}

func (m *mockLinkCache) Set(ctx context.Context, slug string, link *cache.CachedLink, ttl time.Duration) error {
	return nil
}

func (m *mockLinkCache) Delete(ctx context.Context, slug string) error { return nil }

func (m *mockLinkCache) IncrementShopView(ctx context.Context, shopID string) (int64, error) {
	return 1, nil
}

func (m *mockLinkCache) ResetShopViews(ctx context.Context, shopID string) error { return nil }

func (m *mockLinkCache) IncrementShopClick(ctx context.Context, shopID string) (int64, error) {
	return 1, nil
}

func (m *mockLinkCache) ResetShopClicks(ctx context.Context, shopID string) error { return nil }

// withOwner injects a fixed owner identity, standing in for the OIDC
// middleware in tests.
func withOwner(ownerID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithOwnerID(r.Context(), ownerID)))
		})
	}
}

func setupAPIServer(t *testing.T, ownerID uuid.UUID) (*chi.Mux, *mockLinkStorage) {
	t.Helper()
	mockStorage := newMockLinkStorage()
	logger := logging.NewLogger(logging.LevelError)
	linkService := service.NewLockedLinkService(mockStorage, &mockLinkCache{}, logger)
	handler := httphandlers.NewHandler(linkService, nil, nil, "https://links.test", logger)

	r := chi.NewRouter()
	r.Use(withOwner(ownerID))
	httphandlers.SetupRoutes(r, handler, nil)
	return r, mockStorage
}

func postJSON(t *testing.T, r http.Handler, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateLockedLinkValidation(t *testing.T) {
	r, _ := setupAPIServer(t, uuid.New())

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"password":"pw","target_url":"https://example.com"}`},
		{"missing password", `{"title":"Demo","target_url":"https://example.com"}`},
		{"no target", `{"title":"Demo","password":"pw"}`},
		{"both targets", `{"title":"Demo","password":"pw","target_url":"https://example.com","file_url":"uploads/a/b.pdf"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/v1/locked-links", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateAndVerifyLockedLink(t *testing.T) {
	r, mockStorage := setupAPIServer(t, uuid.New())

	w := postJSON(t, r, "/v1/locked-links", `{"title":"Demo","target_url":"https://example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		Slug     string             `json:"slug"`
		ShareURL string             `json:"share_url"`
		Data     storage.LockedLink `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Regexp(t, `^demo-[a-z0-9]{6}$`, created.Slug)
	assert.Equal(t, "https://links.test/l/"+created.Slug, created.ShareURL)
	assert.Equal(t, 0, created.Data.UsesCount)

	w = postJSON(t, r, "/v1/locked-links/verify", `{"slug":"`+created.Slug+`","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var verified struct {
		Success   bool    `json:"success"`
		Title     string  `json:"title"`
		TargetURL *string `json:"target_url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verified))
	assert.True(t, verified.Success)
	assert.Equal(t, "Demo", verified.Title)
	require.NotNil(t, verified.TargetURL)
	assert.Equal(t, "https://example.com", *verified.TargetURL)

	stored, _ := mockStorage.GetBySlug(context.Background(), created.Slug)
	assert.Equal(t, 1, stored.UsesCount)
}

func TestVerifyStatusMapping(t *testing.T) {
	r, _ := setupAPIServer(t, uuid.New())

	w := postJSON(t, r, "/v1/locked-links", `{"title":"Once","target_url":"https://example.com","password":"secret123","max_uses":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Slug string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Missing fields.
	w = postJSON(t, r, "/v1/locked-links/verify", `{"slug":"`+created.Slug+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown slug.
	w = postJSON(t, r, "/v1/locked-links/verify", `{"slug":"nope-abc123","password":"secret123"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Wrong password.
	w = postJSON(t, r, "/v1/locked-links/verify", `{"slug":"`+created.Slug+`","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// First correct use succeeds, second hits the ceiling.
	w = postJSON(t, r, "/v1/locked-links/verify", `{"slug":"`+created.Slug+`","password":"secret123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	w = postJSON(t, r, "/v1/locked-links/verify", `{"slug":"`+created.Slug+`","password":"secret123"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestVerifyExpiredLink(t *testing.T) {
	r, mockStorage := setupAPIServer(t, uuid.New())

	past := time.Now().Add(-time.Hour)
	target := "https://example.com"
	link := &storage.LockedLink{
		ID:           uuid.New(),
		OwnerID:      uuid.New(),
		Slug:         "old-news-abc123",
		Title:        "Old News",
		TargetURL:    &target,
		PasswordHash: "irrelevant", // expiry is checked before the password, so the hash is never compared
		ExpiresAt:    &past,
	}
	require.NoError(t, mockStorage.Create(context.Background(), link))

	w := postJSON(t, r, "/v1/locked-links/verify", `{"slug":"old-news-abc123","password":"password"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListAndDeleteLockedLinks(t *testing.T) {
	owner := uuid.New()
	r, _ := setupAPIServer(t, owner)

	w := postJSON(t, r, "/v1/locked-links", `{"title":"Mine","target_url":"https://example.com","password":"pw1234"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Slug string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req := httptest.NewRequest("GET", "/v1/locked-links", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Data []storage.LockedLink `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Data, 1)

	req = httptest.NewRequest("DELETE", "/v1/locked-links/"+created.Slug, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest("GET", "/v1/locked-links", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Empty(t, listed.Data)
}

// --- unlock server ---

var csrfTokenRe = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// stubFileResolver signs object keys the way the S3 presigner would.
type stubFileResolver struct{}

func (stubFileResolver) PresignDownload(ctx context.Context, key string) (string, error) {
	return "https://files.test/" + key + "?signed=1", nil
}

func setupUnlockServer(t *testing.T) (*chi.Mux, *service.LockedLinkService, *mockLinkStorage) {
	t.Helper()
	mockStorage := newMockLinkStorage()
	logger := logging.NewLogger(logging.LevelError)
	linkService := service.NewLockedLinkService(mockStorage, &mockLinkCache{}, logger)
	handler := httphandlers.NewUnlockHandler(linkService, security.NewCSRFTokenManager(), stubFileResolver{}, logger)

	r := chi.NewRouter()
	httphandlers.SetupUnlockRoutes(r, handler)
	return r, linkService, mockStorage
}

func TestUnlockPageFlow(t *testing.T) {
	r, linkService, _ := setupUnlockServer(t)

	target := "https://example.com/secret"
	link, err := linkService.Create(context.Background(), uuid.New(), &service.CreateLockedLinkRequest{
		Title:     "Hidden Page",
		TargetURL: &target,
		Password:  "letmein",
	})
	require.NoError(t, err)

	// Load the prompt, capturing the CSRF token and session cookie.
	req := httptest.NewRequest("GET", "/l/"+link.Slug, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Hidden Page")

	match := csrfTokenRe.FindStringSubmatch(w.Body.String())
	require.Len(t, match, 2)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	// Submit the form with the token and the right password.
	form := url.Values{"csrf_token": {match[1]}, "password": {"letmein"}}
	req = httptest.NewRequest("POST", "/l/"+link.Slug+"/unlock", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, target, w.Header().Get("Location"))
}

func TestUnlockFileLink(t *testing.T) {
	r, linkService, _ := setupUnlockServer(t)

	// File-backed links store a bare object key, not a URL.
	key := "uploads/o/doc.pdf"
	link, err := linkService.Create(context.Background(), uuid.New(), &service.CreateLockedLinkRequest{
		Title:    "Report",
		FileURL:  &key,
		Password: "letmein",
	})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/l/"+link.Slug, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	match := csrfTokenRe.FindStringSubmatch(w.Body.String())
	require.Len(t, match, 2)
	cookies := w.Result().Cookies()

	form := url.Values{"csrf_token": {match[1]}, "password": {"letmein"}}
	req = httptest.NewRequest("POST", "/l/"+link.Slug+"/unlock", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)

	// The redirect must be a fetchable signed URL, never the raw key.
	assert.Equal(t, "https://files.test/uploads/o/doc.pdf?signed=1", w.Header().Get("Location"))
}

func TestUnlockRejectsBadCSRF(t *testing.T) {
	r, linkService, _ := setupUnlockServer(t)

	target := "https://example.com"
	link, err := linkService.Create(context.Background(), uuid.New(), &service.CreateLockedLinkRequest{
		Title:     "Guarded",
		TargetURL: &target,
		Password:  "letmein",
	})
	require.NoError(t, err)

	form := url.Values{"csrf_token": {"forged"}, "password": {"letmein"}}
	req := httptest.NewRequest("POST", "/l/"+link.Slug+"/unlock", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUnlockPageUnknownSlug(t *testing.T) {
	r, _, _ := setupUnlockServer(t)

	req := httptest.NewRequest("GET", "/l/never-was-abc123", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
