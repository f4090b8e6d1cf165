// Package handler exposes the submission lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"scholar/internal/platform/metrics"
	"scholar/internal/platform/middleware"
	"scholar/internal/submission"
	"scholar/internal/transport/http/shared"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
	"scholar/pkg/requestcontext"
)

// Service defines the submission operations the handler needs.
type Service interface {
	Submit(ctx context.Context, authorID id.AgentID, pseudonym id.Pseudonym, in submission.SubmitInput) (*submission.Work, error)
	Revise(ctx context.Context, agentID id.AgentID, workID id.WorkID, in submission.ReviseInput) (*submission.Work, error)
	Get(ctx context.Context, workID id.WorkID) (*submission.Work, error)
	ListByAuthor(ctx context.Context, authorID id.AgentID) ([]*submission.Work, error)
	VerifyContentHash(ctx context.Context, hash string) (*submission.Verification, error)
}

// Handler handles work submission endpoints.
type Handler struct {
	logger  *slog.Logger
	works   Service
	metrics *metrics.Metrics
	auth    func(http.Handler) http.Handler
}

// New creates a new submission Handler. auth is the RequireAgent middleware
// already bound to the identity service.
func New(works Service, logger *slog.Logger, m *metrics.Metrics, auth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:  logger,
		works:   works,
		metrics: m,
		auth:    auth,
	}
}

// Register registers the work routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(workRouter chi.Router) {
		workRouter.Use(middleware.Recovery(h.logger))
		workRouter.Use(middleware.RequestID)
		workRouter.Use(middleware.Logger(h.logger))
		workRouter.Use(middleware.Timeout(30 * time.Second))
		workRouter.Use(middleware.ContentTypeJSON)
		workRouter.Use(middleware.LatencyMiddleware(h.metrics))
		workRouter.Use(h.auth)
		workRouter.Post("/works", h.handleSubmit)
		workRouter.Get("/works", h.handleListMine)
		workRouter.Get("/works/{workID}", h.handleGet)
		workRouter.Post("/works/{workID}/revisions", h.handleRevise)
	})

	// Verification is public: third parties check a hash without holding
	// platform credentials.
	r.Group(func(verifyRouter chi.Router) {
		verifyRouter.Use(middleware.Recovery(h.logger))
		verifyRouter.Use(middleware.RequestID)
		verifyRouter.Use(middleware.Logger(h.logger))
		verifyRouter.Use(middleware.Timeout(30 * time.Second))
		verifyRouter.Use(middleware.LatencyMiddleware(h.metrics))
		verifyRouter.Get("/verify/{contentHash}", h.handleVerify)
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	v, err := h.works.VerifyContentHash(ctx, chi.URLParam(r, "contentHash"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, verifyResponse(v))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID, pseudonym, ok := h.identity(ctx, w)
	if !ok {
		return
	}

	var in submission.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	work, err := h.works.Submit(ctx, agentID, pseudonym, in)
	if err != nil {
		h.logger.WarnContext(ctx, "submission refused",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, workResponse(work))
}

func (h *Handler) handleRevise(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID, _, ok := h.identity(ctx, w)
	if !ok {
		return
	}

	workID, err := id.ParseWorkID(chi.URLParam(r, "workID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var in submission.ReviseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	work, err := h.works.Revise(ctx, agentID, workID, in)
	if err != nil {
		h.logger.WarnContext(ctx, "revision refused",
			"request_id", middleware.GetRequestID(ctx),
			"work_id", workID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, workResponse(work))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workID, err := id.ParseWorkID(chi.URLParam(r, "workID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	work, err := h.works.Get(ctx, workID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, workResponse(work))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID, _, ok := h.identity(ctx, w)
	if !ok {
		return
	}

	works, err := h.works.ListByAuthor(ctx, agentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]*WorkResponse, 0, len(works))
	for _, work := range works {
		out = append(out, workResponse(work))
	}
	shared.WriteJSON(w, http.StatusOK, ListWorksResponse{Works: out})
}

func (h *Handler) identity(ctx context.Context, w http.ResponseWriter) (id.AgentID, id.Pseudonym, bool) {
	agentID := requestcontext.AgentID(ctx)
	pseudonym := requestcontext.Pseudonym(ctx)
	if agentID.IsNil() {
		h.logger.ErrorContext(ctx, "agent identity missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.AgentID{}, "", false
	}
	return agentID, pseudonym, true
}
