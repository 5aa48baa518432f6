package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/photo-curator/internal/web/handlers"
)

const requestTimeout = 5 * time.Minute

func (s *Server) setupRoutes() {
	groupsHandler := handlers.NewGroupsHandler(s.deps.Curator, s.logger)
	settingsHandler := handlers.NewSettingsHandler(s.deps.Settings, s.logger)
	similarHandler := handlers.NewSimilarHandler(s.deps.Index)
	eventsHandler := handlers.NewEventsHandler(s.deps.Curator.Manager(), s.logger)
	cacheHandler := handlers.NewCacheHandler(s.logger, s.deps.Caches...)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Event stream, kept out of the timeout group
		r.Get("/events", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			// Analysis and groups
			r.Post("/analyze", groupsHandler.Analyze)
			r.Get("/groups", groupsHandler.List)
			r.Get("/groups/{id}", groupsHandler.Get)
			r.Post("/groups/{id}/process", groupsHandler.Process)
			r.Delete("/processing", groupsHandler.CancelAll)
			r.Delete("/cache", cacheHandler.Clear)

			// Label settings
			r.Get("/settings/labels", settingsHandler.Get)
			r.Put("/settings/labels", settingsHandler.Put)
			r.Post("/settings/labels/reset", settingsHandler.Reset)

			// Similarity
			r.Get("/assets/{id}/similar", similarHandler.Similar)
		})
	})
}
