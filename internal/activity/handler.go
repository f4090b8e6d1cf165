// Package activity exposes a read surface over the audit trail: the
// platform-wide recent-activity feed and the per-work event history. Entries
// carry pseudonyms only; agent IDs never leave the store.
package activity

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"scholar/internal/platform/metrics"
	"scholar/internal/platform/middleware"
	"scholar/internal/transport/http/shared"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
	audit "scholar/pkg/platform/audit"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200
)

// Log is the audit read access the feed needs.
type Log interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
	ListByWork(ctx context.Context, workID id.WorkID) ([]audit.Event, error)
}

// Handler serves the activity endpoints.
type Handler struct {
	logger  *slog.Logger
	log     Log
	metrics *metrics.Metrics
	auth    func(http.Handler) http.Handler
}

// New creates an activity Handler. auth is the RequireAgent middleware
// already bound to the identity service.
func New(log Log, logger *slog.Logger, m *metrics.Metrics, auth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:  logger,
		log:     log,
		metrics: m,
		auth:    auth,
	}
}

// Register registers the activity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(feedRouter chi.Router) {
		feedRouter.Use(middleware.Recovery(h.logger))
		feedRouter.Use(middleware.RequestID)
		feedRouter.Use(middleware.Logger(h.logger))
		feedRouter.Use(middleware.Timeout(30 * time.Second))
		feedRouter.Use(middleware.LatencyMiddleware(h.metrics))
		feedRouter.Use(h.auth)
		feedRouter.Get("/activity", h.handleFeed)
		feedRouter.Get("/works/{workID}/activity", h.handleWorkHistory)
	})
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	events, err := h.log.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load activity feed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load activity"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, feedResponse(events))
}

func (h *Handler) handleWorkHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workID, err := id.ParseWorkID(chi.URLParam(r, "workID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	events, err := h.log.ListByWork(ctx, workID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load work history",
			"request_id", middleware.GetRequestID(ctx),
			"work_id", workID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load activity"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, feedResponse(events))
}
