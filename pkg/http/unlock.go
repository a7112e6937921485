package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"shopfront/pkg/logging"
	"shopfront/pkg/security"
	"shopfront/pkg/service"

	"github.com/go-chi/chi/v5"
)

// FileResolver turns a stored object key into a URL a visitor can fetch.
type FileResolver interface {
	PresignDownload(ctx context.Context, key string) (string, error)
}

// UnlockHandler serves the public unlock pages: the password prompt for a
// locked link and the form submission that releases the protected target.
type UnlockHandler struct {
	links  *service.LockedLinkService
	csrf   *security.CSRFTokenManager
	files  FileResolver
	logger *logging.Logger
}

func NewUnlockHandler(links *service.LockedLinkService, csrf *security.CSRFTokenManager, files FileResolver, logger *logging.Logger) *UnlockHandler {
	return &UnlockHandler{links: links, csrf: csrf, files: files, logger: logger}
}

var unlockPage = template.Must(template.New("unlock").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}} - Protected Link</title></head>
<body>
<h2>{{.Title}}</h2>
<p>This {{if .HasFile}}file{{else}}link{{end}} is password protected.</p>
{{if .Error}}<p style="color:red">{{.Error}}</p>{{end}}
<form method="post" action="/l/{{.Slug}}/unlock">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<label>Password: <input type="password" name="password" required></label>
<input type="submit" value="Unlock">
</form>
</body>
</html>`))

type unlockPageData struct {
	Slug      string
	Title     string
	HasFile   bool
	CSRFToken string
	Error     string
}

func (h *UnlockHandler) renderPrompt(w http.ResponseWriter, status int, data unlockPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := unlockPage.Execute(w, data); err != nil {
		h.logger.Logger.Error("render unlock page", "error", err)
	}
}

// ShowUnlockPage renders the password prompt for a slug.
func (h *UnlockHandler) ShowUnlockPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	meta, err := h.links.GetPublic(r.Context(), slug)
	if err != nil {
		h.writePublicError(w, r, err)
		return
	}

	token, err := h.csrf.GenerateToken(security.SessionID(w, r))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.renderPrompt(w, http.StatusOK, unlockPageData{
		Slug:      slug,
		Title:     meta.Title,
		HasFile:   meta.HasFile,
		CSRFToken: token,
	})
}

// HandleUnlock verifies the submitted password and, on success, redirects to
// the protected destination. The CSRF token is single-use.
func (h *UnlockHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	sessionID := security.SessionID(w, r)
	if !h.csrf.ValidateToken(sessionID, r.FormValue("csrf_token")) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}
	h.csrf.InvalidateToken(sessionID)

	result, err := h.links.Verify(r.Context(), slug, r.FormValue("password"))
	if err != nil {
		h.retryOrFail(w, r, slug, err)
		return
	}

	if result.TargetURL != nil {
		http.Redirect(w, r, *result.TargetURL, http.StatusFound)
		return
	}

	// File-backed links store a bare object key; redirecting to it verbatim
	// would resolve relative to this page. Presign a download URL instead.
	fileURL := *result.FileURL
	if !isAbsoluteURL(fileURL) {
		if h.files == nil {
			h.logger.Error(r.Context(), "file downloads not configured", "slug", slug)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		fileURL, err = h.files.PresignDownload(r.Context(), fileURL)
		if err != nil {
			h.logger.Error(r.Context(), "resolve file url failed", "slug", slug, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	http.Redirect(w, r, fileURL, http.StatusFound)
}

func isAbsoluteURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// retryOrFail re-renders the prompt with a message for a wrong password and
// turns everything else into a terminal error page.
func (h *UnlockHandler) retryOrFail(w http.ResponseWriter, r *http.Request, slug string, err error) {
	if errors.Is(err, service.ErrInvalidPassword) {
		meta, metaErr := h.links.GetPublic(r.Context(), slug)
		if metaErr != nil {
			h.writePublicError(w, r, metaErr)
			return
		}
		token, tokenErr := h.csrf.GenerateToken(security.SessionID(w, r))
		if tokenErr != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		h.renderPrompt(w, http.StatusUnauthorized, unlockPageData{
			Slug:      slug,
			Title:     meta.Title,
			HasFile:   meta.HasFile,
			CSRFToken: token,
			Error:     "Incorrect password, try again.",
		})
		return
	}
	h.writePublicError(w, r, err)
}

func (h *UnlockHandler) writePublicError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, "link not found", http.StatusNotFound)
	case errors.Is(err, service.ErrLinkExpired):
		http.Error(w, "link has expired", http.StatusForbidden)
	case errors.Is(err, service.ErrUsageLimit):
		http.Error(w, "link has reached maximum uses", http.StatusForbidden)
	case service.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(r.Context(), "unlock request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// SetupUnlockRoutes mounts the public unlock server routes.
func SetupUnlockRoutes(r *chi.Mux, handler *UnlockHandler) {
	r.Get("/health", handler.HealthCheck)
	r.Get("/l/{slug}", handler.ShowUnlockPage)
	r.Post("/l/{slug}/unlock", handler.HandleUnlock)
}

func (h *UnlockHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
