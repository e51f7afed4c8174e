package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mkorneva/ditakeeper/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// topicPath extracts the topic path from the URL (everything after /topics/).
// Supports encoded slashes from OpenAPI clients (e.g. media%2Ftopic.dita).
func topicPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// GetProject handles GET /api/project.
//
//	@Summary		Describe the loaded project
//	@Tags			project
//	@Produce		json
//	@Success		200	{object}	ProjectSummary
//	@Security		BearerAuth
//	@Router			/project [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Summary(r.Context()))
}

// ListTopics handles GET /api/topics.
//
//	@Summary		List every topic in the project
//	@Tags			topics
//	@Produce		json
//	@Success		200	{object}	TopicListResponse
//	@Security		BearerAuth
//	@Router			/topics [get]
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListTopics(r.Context())
	if err != nil {
		slog.Error("list topics failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"topics": items,
		"total":  len(items),
	})
}

// GetTopic handles GET /api/topics/*.
//
//	@Summary		Get a single topic by path
//	@Tags			topics
//	@Produce		json
//	@Param			path	path		string	true	"Topic path"
//	@Success		200		{object}	TopicDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/topics/{path} [get]
func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	path := topicPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	topic, err := h.svc.GetTopic(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get topic failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// ListProblems handles GET /api/problems.
//
//	@Summary		List topics that need review
//	@Tags			problems
//	@Produce		json
//	@Success		200	{object}	ProblemListResponse
//	@Security		BearerAuth
//	@Router			/problems [get]
func (h *Handler) ListProblems(w http.ResponseWriter, r *http.Request) {
	problems := h.svc.Problems(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"problems": problems,
		"total":    len(problems),
	})
}

// RenameTopics handles POST /api/rename-topics.
//
//	@Summary		Rename every topic to its canonical style-guide name
//	@Tags			operations
//	@Produce		json
//	@Success		200	{object}	RenameTopicsResponse
//	@Security		BearerAuth
//	@Router			/rename-topics [post]
func (h *Handler) RenameTopics(w http.ResponseWriter, r *http.Request) {
	renamed, err := h.svc.RenameTopics(r.Context())
	if err != nil {
		slog.Error("rename topics failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"renamed": renamed})
}

// RenameImages handles POST /api/images/rename.
//
//	@Summary		Rename image assets using a project prefix
//	@Tags			operations
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RenameImagesRequest	true	"Project prefix"
//	@Success		200		{object}	OkResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/images/rename [post]
func (h *Handler) RenameImages(w http.ResponseWriter, r *http.Request) {
	var req RenameImagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.RenameImages(r.Context(), req.Prefix); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// CastTopic handles POST /api/topics/cast.
//
//	@Summary		Cast a topic to a semantic variant
//	@Tags			operations
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CastTopicRequest	true	"Topic path and target type"
//	@Success		200		{object}	OkResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/topics/cast [post]
func (h *Handler) CastTopic(w http.ResponseWriter, r *http.Request) {
	var req CastTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Type == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and type are required"))
		return
	}
	if err := h.svc.CastTopic(r.Context(), req.Path, req.Type); err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrMalformed):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("cast topic failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// CreateRootConcept handles POST /api/root-concept.
//
//	@Summary		Create a root concept over the map
//	@Tags			operations
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RootConceptRequest	true	"Root concept title"
//	@Success		201		{object}	OkResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/root-concept [post]
func (h *Handler) CreateRootConcept(w http.ResponseWriter, r *http.Request) {
	var req RootConceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.CreateRootConcept(r.Context(), req.Title); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("root concept already exists"))
		} else {
			slog.Error("create root concept failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
}

// AddTopicGroups handles POST /api/topic-groups.
//
//	@Summary		Group consecutive same-type map entries
//	@Tags			operations
//	@Produce		json
//	@Success		200	{object}	OkResponse
//	@Security		BearerAuth
//	@Router			/topic-groups [post]
func (h *Handler) AddTopicGroups(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.AddTopicGroups(r.Context()); err != nil {
		slog.Error("add topic groups failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// MassEdit handles POST /api/mass-edit.
//
//	@Summary		Apply the canned short descriptions and reference labels
//	@Tags			operations
//	@Produce		json
//	@Success		200	{object}	MassEditResponse
//	@Security		BearerAuth
//	@Router			/mass-edit [post]
func (h *Handler) MassEdit(w http.ResponseWriter, r *http.Request) {
	processed, err := h.svc.MassEdit(r.Context())
	if err != nil {
		slog.Error("mass edit failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if processed == nil {
		processed = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"processed": processed})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across topics
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the topic link graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}
