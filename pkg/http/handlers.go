package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"shopfront/pkg/logging"
	"shopfront/pkg/middleware"
	"shopfront/pkg/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handler struct {
	links         *service.LockedLinkService
	shops         *service.ShopService
	uploads       *service.UploadService
	publicBaseURL string
	logger        *logging.Logger
}

func NewHandler(links *service.LockedLinkService, shops *service.ShopService, uploads *service.UploadService, publicBaseURL string, logger *logging.Logger) *Handler {
	return &Handler{
		links:         links,
		shops:         shops,
		uploads:       uploads,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// shareURL builds the public unlock-page URL for a slug. Without a
// configured base it degrades to the path alone.
func (h *Handler) shareURL(slug string) string {
	return strings.TrimRight(h.publicBaseURL, "/") + "/l/" + slug
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Logger.Error("encode response", "error", err)
	}
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Store failures stay generic so internals never leak to callers.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.respondWithError(w, http.StatusBadRequest, vErr.Msg)
	case errors.Is(err, service.ErrNotFound):
		h.respondWithError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrLinkExpired):
		h.respondWithError(w, http.StatusForbidden, "link has expired")
	case errors.Is(err, service.ErrUsageLimit):
		h.respondWithError(w, http.StatusForbidden, "link has reached maximum uses")
	case errors.Is(err, service.ErrInvalidPassword):
		h.respondWithError(w, http.StatusUnauthorized, "invalid password")
	case errors.Is(err, service.ErrAccessDenied):
		h.respondWithError(w, http.StatusForbidden, "access denied")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		h.respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- locked links ---

func (h *Handler) CreateLockedLink(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLockedLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	link, err := h.links.Create(r.Context(), ownerID, &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"data":      link,
		"slug":      link.Slug,
		"share_url": h.shareURL(link.Slug),
	})
}

type verifyRequest struct {
	Slug     string `json:"slug"`
	Password string `json:"password"`
}

func (h *Handler) VerifyLockedLink(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.links.Verify(r.Context(), req.Slug, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// Stored file_url values are bare object keys; hand callers a fetchable
	// URL when a presigner is configured.
	fileURL := result.FileURL
	if fileURL != nil && !strings.Contains(*fileURL, "://") && h.uploads != nil {
		signed, err := h.uploads.PresignDownload(r.Context(), *fileURL)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		fileURL = &signed
	}

	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"title":      result.Title,
		"target_url": result.TargetURL,
		"file_url":   fileURL,
	})
}

func (h *Handler) ListLockedLinks(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	links, err := h.links.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"data": links})
}

func (h *Handler) DeleteLockedLink(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	if err := h.links.Delete(r.Context(), ownerID, chi.URLParam(r, "slug")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- shops ---

func (h *Handler) CreateShop(w http.ResponseWriter, r *http.Request) {
	var req service.CreateShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	shop, err := h.shops.CreateShop(r.Context(), ownerID, &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, map[string]any{"data": shop})
}

func (h *Handler) GetShop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.shops.GetShopPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"data": shop})
}

func (h *Handler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	shopID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid shop id")
		return
	}

	var req service.UpdateShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	shop, err := h.shops.UpdateShop(r.Context(), ownerID, shopID, &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"data": shop})
}

func (h *Handler) DeleteShop(w http.ResponseWriter, r *http.Request) {
	shopID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid shop id")
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	if err := h.shops.DeleteShop(r.Context(), ownerID, shopID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- products ---

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	shopID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid shop id")
		return
	}

	var req service.ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	product, err := h.shops.AddProduct(r.Context(), ownerID, shopID, &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, map[string]any{"data": product})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	shopID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid shop id")
		return
	}

	products, err := h.shops.ListProducts(r.Context(), shopID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"data": products})
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req service.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	product, err := h.shops.UpdateProduct(r.Context(), ownerID, productID, &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"data": product})
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	if err := h.shops.DeleteProduct(r.Context(), ownerID, productID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- custom links ---

func (h *Handler) CreateCustomLink(w http.ResponseWriter, r *http.Request) {
	shopID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid shop id")
		return
	}

	var req service.CustomLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	link, err := h.shops.AddCustomLink(r.Context(), ownerID, shopID, &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, map[string]any{"data": link})
}

func (h *Handler) ListCustomLinks(w http.ResponseWriter, r *http.Request) {
	shopID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid shop id")
		return
	}

	links, err := h.shops.ListCustomLinks(r.Context(), shopID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"data": links})
}

// ClickCustomLink records an outbound click and forwards the visitor to the
// link's destination.
func (h *Handler) ClickCustomLink(w http.ResponseWriter, r *http.Request) {
	linkID, err := uuid.Parse(chi.URLParam(r, "linkID"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid link id")
		return
	}

	link, err := h.shops.RecordLinkClick(r.Context(), linkID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, link.URL, http.StatusFound)
}

func (h *Handler) DeleteCustomLink(w http.ResponseWriter, r *http.Request) {
	linkID, err := uuid.Parse(chi.URLParam(r, "linkID"))
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid link id")
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	if err := h.shops.DeleteCustomLink(r.Context(), ownerID, linkID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- uploads ---

type uploadRequest struct {
	Filename string `json:"filename"`
}

func (h *Handler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	if h.uploads == nil {
		h.respondWithError(w, http.StatusNotImplemented, "uploads not configured")
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ownerID := middleware.GetOwnerIDFromContext(r.Context())
	ticket, err := h.uploads.PresignUpload(r.Context(), ownerID, req.Filename)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"data": ticket})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
