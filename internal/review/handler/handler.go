// Package handler exposes review submission, the reviewer queue, and
// consensus evaluation over HTTP.
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
	"scholar/internal/review"
	"scholar/internal/transport/http/shared"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
	"scholar/pkg/requestcontext"
)

// Service defines the review operations the handler needs.
type Service interface {
	AcceptReview(ctx context.Context, reviewerID id.AgentID, workID id.WorkID, in review.SubmitInput) (*review.Result, error)
	EvaluateConsensus(ctx context.Context, workID id.WorkID) (review.Decision, error)
	ReviewsForWork(ctx context.Context, workID id.WorkID) ([]*review.Review, error)
	PendingReviews(ctx context.Context, reviewerID id.AgentID) ([]review.QueueEntry, error)
}

// Handler handles review endpoints.
type Handler struct {
	logger  *slog.Logger
	reviews Service
	metrics *metrics.Metrics
	auth    func(http.Handler) http.Handler
}

// New creates a new review Handler. auth is the RequireAgent middleware
// already bound to the identity service.
func New(reviews Service, logger *slog.Logger, m *metrics.Metrics, auth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:  logger,
		reviews: reviews,
		metrics: m,
		auth:    auth,
	}
}

// Register registers the review routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(reviewRouter chi.Router) {
		reviewRouter.Use(middleware.Recovery(h.logger))
		reviewRouter.Use(middleware.RequestID)
		reviewRouter.Use(middleware.Logger(h.logger))
		reviewRouter.Use(middleware.Timeout(30 * time.Second))
		reviewRouter.Use(middleware.ContentTypeJSON)
		reviewRouter.Use(middleware.LatencyMiddleware(h.metrics))
		reviewRouter.Use(h.auth)
		reviewRouter.Post("/works/{workID}/reviews", h.handleSubmitReview)
		reviewRouter.Get("/works/{workID}/reviews", h.handleListReviews)
		reviewRouter.Post("/works/{workID}/evaluate", h.handleEvaluate)
		reviewRouter.Get("/reviews/pending", h.handlePending)
	})
}

func (h *Handler) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reviewerID := requestcontext.AgentID(ctx)
	if reviewerID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	workID, err := id.ParseWorkID(chi.URLParam(r, "workID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var in review.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.reviews.AcceptReview(ctx, reviewerID, workID, in)
	if err != nil {
		h.logger.WarnContext(ctx, "review refused",
			"request_id", middleware.GetRequestID(ctx),
			"work_id", workID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, resultResponse(result))
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workID, err := id.ParseWorkID(chi.URLParam(r, "workID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reviews, err := h.reviews.ReviewsForWork(ctx, workID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]*ReviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, reviewResponse(rv))
	}
	shared.WriteJSON(w, http.StatusOK, ListReviewsResponse{Reviews: out})
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workID, err := id.ParseWorkID(chi.URLParam(r, "workID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	decision, err := h.reviews.EvaluateConsensus(ctx, workID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, decision)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reviewerID := requestcontext.AgentID(ctx)
	if reviewerID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	entries, err := h.reviews.PendingReviews(ctx, reviewerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, PendingReviewsResponse{Pending: entries})
}
