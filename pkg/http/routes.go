package http

import (
	"github.com/go-chi/chi/v5"

	"shopfront/pkg/middleware"
)

// SetupRoutes mounts the management API. A nil oauthMiddleware leaves every
// route open, which is only meant for local development and tests.
func SetupRoutes(r *chi.Mux, handler *Handler, oauthMiddleware *middleware.OAuthMiddleware) {
	r.Get("/health", handler.HealthCheck)

	r.Route("/v1", func(r chi.Router) {
		// Public endpoints: the verify flow and shop pages are reachable by
		// anyone holding the slug.
		r.Post("/locked-links/verify", handler.VerifyLockedLink)
		r.Get("/shops/{id}", handler.GetShop)
		r.Get("/shops/{id}/products", handler.ListProducts)
		r.Get("/shops/{id}/links", handler.ListCustomLinks)
		r.Get("/links/{linkID}/click", handler.ClickCustomLink)

		if oauthMiddleware != nil {
			write := oauthMiddleware.Authenticate("shopfront:write")
			read := oauthMiddleware.Authenticate("shopfront:read")

			r.With(write).Post("/locked-links", handler.CreateLockedLink)
			r.With(read).Get("/locked-links", handler.ListLockedLinks)
			r.With(write).Delete("/locked-links/{slug}", handler.DeleteLockedLink)

			r.With(write).Post("/shops", handler.CreateShop)
			r.With(write).Patch("/shops/{id}", handler.UpdateShop)
			r.With(write).Delete("/shops/{id}", handler.DeleteShop)

			r.With(write).Post("/shops/{id}/products", handler.CreateProduct)
			r.With(write).Patch("/products/{productID}", handler.UpdateProduct)
			r.With(write).Delete("/products/{productID}", handler.DeleteProduct)

			r.With(write).Post("/shops/{id}/links", handler.CreateCustomLink)
			r.With(write).Delete("/links/{linkID}", handler.DeleteCustomLink)

			r.With(write).Post("/uploads", handler.CreateUpload)
		} else {
			r.Post("/locked-links", handler.CreateLockedLink)
			r.Get("/locked-links", handler.ListLockedLinks)
			r.Delete("/locked-links/{slug}", handler.DeleteLockedLink)

			r.Post("/shops", handler.CreateShop)
			r.Patch("/shops/{id}", handler.UpdateShop)
			r.Delete("/shops/{id}", handler.DeleteShop)

			r.Post("/shops/{id}/products", handler.CreateProduct)
			r.Patch("/products/{productID}", handler.UpdateProduct)
			r.Delete("/products/{productID}", handler.DeleteProduct)

			r.Post("/shops/{id}/links", handler.CreateCustomLink)
			r.Delete("/links/{linkID}", handler.DeleteCustomLink)

			r.Post("/uploads", handler.CreateUpload)
		}
	})
}
