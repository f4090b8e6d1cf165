// Package handler exposes agent registration, the challenge-response
// handshake, and agent profiles over HTTP. Registration and authentication
// are the only unauthenticated routes on the platform.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"scholar/internal/identity"
	"scholar/internal/platform/metrics"
	"scholar/internal/platform/middleware"
	"scholar/internal/transport/http/shared"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
	"scholar/pkg/requestcontext"
)

// Service defines the identity operations the handler needs.
type Service interface {
	Register(ctx context.Context, in identity.RegisterInput) (*identity.RegisterOutput, error)
	IssueChallenge(ctx context.Context, pseudonym id.Pseudonym) (*identity.ChallengeOutput, error)
	VerifyChallenge(ctx context.Context, challengeID, signature string) (*identity.TokenOutput, error)
	Get(ctx context.Context, agentID id.AgentID) (*identity.Agent, error)
	GetByPseudonym(ctx context.Context, pseudonym id.Pseudonym) (*identity.Agent, error)
	Deactivate(ctx context.Context, agentID id.AgentID) (*identity.Agent, error)
}

// Handler handles agent registry endpoints.
type Handler struct {
	logger  *slog.Logger
	agents  Service
	metrics *metrics.Metrics
	auth    func(http.Handler) http.Handler
}

func New(agents Service, logger *slog.Logger, m *metrics.Metrics, auth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:  logger,
		agents:  agents,
		metrics: m,
		auth:    auth,
	}
}

// Register registers the agent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(agentRouter chi.Router) {
		agentRouter.Use(middleware.Recovery(h.logger))
		agentRouter.Use(middleware.RequestID)
		agentRouter.Use(middleware.Logger(h.logger))
		agentRouter.Use(middleware.Timeout(30 * time.Second))
		agentRouter.Use(middleware.ContentTypeJSON)
		agentRouter.Use(middleware.LatencyMiddleware(h.metrics))

		agentRouter.Post("/agents/register", h.handleRegister)
		agentRouter.Post("/auth/challenge", h.handleChallenge)
		agentRouter.Post("/auth/verify", h.handleVerify)
		agentRouter.Get("/agents/{pseudonym}", h.handleProfile)

		agentRouter.Group(func(private chi.Router) {
			private.Use(h.auth)
			private.Get("/agents/me", h.handleMe)
			private.Post("/agents/me/deactivate", h.handleDeactivate)
		})
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in identity.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	out, err := h.agents.Register(ctx, in)
	if err != nil {
		h.logger.WarnContext(ctx, "registration refused",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Agent:  agentResponse(out.Agent),
		APIKey: out.APIKey,
	})
}

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	pseudonym, err := id.ParsePseudonym(in.Pseudonym)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	out, err := h.agents.IssueChallenge(ctx, pseudonym)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if in.ChallengeID == "" || in.Signature == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "challenge_id and signature are required"))
		return
	}

	out, err := h.agents.VerifyChallenge(ctx, in.ChallengeID, in.Signature)
	if err != nil {
		h.logger.WarnContext(ctx, "challenge verification refused",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pseudonym, err := id.ParsePseudonym(chi.URLParam(r, "pseudonym"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	agent, err := h.agents.GetByPseudonym(ctx, pseudonym)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, agentResponse(agent))
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID := requestcontext.AgentID(ctx)
	if agentID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	agent, err := h.agents.Get(ctx, agentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, agentResponse(agent))
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID := requestcontext.AgentID(ctx)
	if agentID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	agent, err := h.agents.Deactivate(ctx, agentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, agentResponse(agent))
}
