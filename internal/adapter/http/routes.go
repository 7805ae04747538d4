package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers every Read-Model Server API route on r. The SSE
// stream endpoint is mounted by the caller (internal/readmodel.Server) at
// /api/events, since it is served by the broadcast hub rather than a
// Handlers method.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api", func(r chi.Router) {
		// Pipeline-wide status
		r.Get("/status", h.Status)

		// Features
		r.Get("/features", h.ListFeatures)
		r.Post("/features", h.CreateFeature)
		r.Get("/features/{id}", h.GetFeature)
		r.Patch("/features/{id}", h.UpdateFeature)

		// OpenSpec change progress
		r.Get("/openspec/changes", h.OpenSpecChanges)

		// Config
		r.Get("/config", h.ListConfig)
		r.Put("/config", h.SetConfig)

		// Architecture
		r.Get("/architecture", h.ListArchitecture)
		r.Get("/architecture/{kind}", h.GetArchitecture)
		r.Put("/architecture", h.SetArchitecture)

		// Sessions / activity feed
		r.Get("/sessions/{id}", h.GetSession)
		r.Get("/activity", h.ListRecentEvents)
	})
}
