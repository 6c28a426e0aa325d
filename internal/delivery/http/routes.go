package http

import (
	"net/http"

	"pairtalk/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MapRoutes wires all handlers onto the router.
func MapRoutes(r *chi.Mux, chatHandler *ChatHandler, authHandler *AuthHandler, authMiddleware *AuthMiddleware, log *logger.Logger, corsOrigin string, healthCheck func(r *http.Request) error) {
	r.Use(RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := healthCheck(req); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
		writeJSON(w, http.StatusOK, Response{Message: "ok"})
	})

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.RefreshToken)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/logout-all", authHandler.LogoutAllDevices)
		})
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", chatHandler.ListConversations)
			r.Post("/", chatHandler.CreateConversation)

			r.Route("/{conversationId}", func(r chi.Router) {
				r.Get("/messages", chatHandler.ListMessages)
				r.Post("/messages", chatHandler.SendMessage)
				r.Get("/messages/sync", chatHandler.GetNewMessages)
				r.Post("/read", chatHandler.MarkAsRead)
				r.Post("/read-status", chatHandler.GetReadStatusUpdates)
				r.Post("/block", chatHandler.ToggleBlock)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", chatHandler.GetMe)
			r.Get("/search", chatHandler.SearchUsers)
		})
	})
}
