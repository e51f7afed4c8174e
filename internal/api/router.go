package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// projectRoot and imageFolder are used to resolve the asset directory.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler, projectRoot, imageFolder string) chi.Router {
	h := NewHandler(svc)
	ah := NewAssetHandler(projectRoot, imageFolder)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Project shape.
	r.Get("/project", h.GetProject)
	r.Get("/problems", h.ListProblems)

	// Topics.
	r.Get("/topics", h.ListTopics)
	r.Post("/topics/cast", h.CastTopic)
	r.Get("/topics/*", h.GetTopic)

	// Whole-project operations.
	r.Post("/rename-topics", h.RenameTopics)
	r.Post("/images/rename", h.RenameImages)
	r.Post("/root-concept", h.CreateRootConcept)
	r.Post("/topic-groups", h.AddTopicGroups)
	r.Post("/mass-edit", h.MassEdit)

	// Search.
	r.Get("/search", h.Search)

	// Graph.
	r.Get("/graph", h.Graph)

	// Asset upload (auth-protected).
	r.Post("/assets", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
