package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scholar/internal/identity/metrics"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
	"scholar/pkg/platform/audit"
	"scholar/pkg/platform/sentinel"
	"scholar/pkg/requestcontext"
)

// DefaultTokenTTL bounds the lifetime of issued access tokens.
const DefaultTokenTTL = time.Hour

// apiKeyPrefix marks platform API keys so the auth middleware can tell them
// apart from bearer tokens.
const apiKeyPrefix = "es_"

// TokenIssuer mints access tokens after a verified challenge.
type TokenIssuer interface {
	GenerateAccessToken(agentID id.AgentID, pseudonym id.Pseudonym, expiresIn time.Duration) (string, error)
}

// RegisterOutput carries the newly registered agent and its plaintext API
// key. The key is never recoverable afterwards.
type RegisterOutput struct {
	Agent  *Agent `json:"agent"`
	APIKey string `json:"api_key"`
}

// ChallengeOutput is the issued challenge the agent must sign.
type ChallengeOutput struct {
	ChallengeID string    `json:"challenge_id"`
	Nonce       string    `json:"nonce"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenOutput is the access token granted after a verified challenge.
type TokenOutput struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	Pseudonym   id.Pseudonym `json:"pseudonym"`
}

// Service manages the agent registry and authentication handshake.
type Service struct {
	agents       Store
	challenges   ChallengeStore
	verifier     SignatureVerifier
	tokens       TokenIssuer
	auditor      audit.Emitter
	logger       *slog.Logger
	metrics      *metrics.Metrics
	challengeTTL time.Duration
	tokenTTL     time.Duration
}

// Option tunes optional service parameters.
type Option func(*Service)

// WithChallengeTTL overrides the challenge lifetime.
func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.challengeTTL = ttl
		}
	}
}

// WithTokenTTL overrides the access token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func New(
	agents Store,
	challenges ChallengeStore,
	verifier SignatureVerifier,
	tokens TokenIssuer,
	auditor audit.Emitter,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...Option,
) (*Service, error) {
	if agents == nil {
		return nil, errors.New("agent store is required")
	}
	if challenges == nil {
		return nil, errors.New("challenge store is required")
	}
	if verifier == nil {
		return nil, errors.New("signature verifier is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if auditor == nil {
		return nil, errors.New("audit emitter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		agents:       agents,
		challenges:   challenges,
		verifier:     verifier,
		tokens:       tokens,
		auditor:      auditor,
		logger:       logger,
		metrics:      m,
		challengeTTL: DefaultChallengeTTL,
		tokenTTL:     DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates an agent under the pseudonym derived from the display name
// and public key, and issues the agent's API key. The same name and key always
// derive the same pseudonym, so re-registration surfaces as a conflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterOutput, error) {
	if err := in.Validate(); err != nil {
		s.metrics.IncrementRegistration("invalid")
		return nil, err
	}
	publicKey, err := base64.StdEncoding.DecodeString(in.PublicKey)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "public key must be base64 encoded")
	}

	apiKey, err := newAPIKey()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate API key")
	}

	now := requestcontext.Now(ctx)
	agent := &Agent{
		ID:           id.NewAgentID(),
		Pseudonym:    id.DerivePseudonym(in.DisplayName, publicKey),
		DisplayName:  in.DisplayName,
		InstanceHash: id.InstanceHash(publicKey),
		PublicKey:    publicKey,
		APIKeyHash:   HashAPIKey(apiKey),
		IsActive:     true,
		CanReview:    true,
		RegisteredAt: now,
		LastActiveAt: now,
	}

	if err := s.agents.Create(ctx, agent); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.metrics.IncrementRegistration("conflict")
			return nil, dErrors.New(dErrors.CodeDuplicate, "pseudonym is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist agent")
	}

	s.metrics.IncrementRegistration("registered")
	s.emit(ctx, audit.Event{
		AgentID:   agent.ID,
		Pseudonym: agent.Pseudonym.String(),
		Action:    string(audit.EventAgentRegistered),
	})
	s.emit(ctx, audit.Event{
		AgentID: agent.ID,
		Action:  string(audit.EventAPIKeyIssued),
	})
	s.logger.InfoContext(ctx, "agent registered",
		"agent_id", agent.ID.String(),
		"pseudonym", agent.Pseudonym.String(),
	)
	return &RegisterOutput{Agent: agent, APIKey: apiKey}, nil
}

// IssueChallenge creates a one-shot nonce for the pseudonym's key holder.
// Unknown pseudonyms and deactivated agents are both reported as unauthorized
// so the endpoint does not confirm which pseudonyms exist.
func (s *Service) IssueChallenge(ctx context.Context, pseudonym id.Pseudonym) (*ChallengeOutput, error) {
	agent, err := s.agents.FindByPseudonym(ctx, pseudonym)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown pseudonym")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up agent")
	}
	if !agent.IsActive {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown pseudonym")
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}
	challenge := Challenge{
		ID:        uuid.NewString(),
		AgentID:   agent.ID,
		Nonce:     nonce,
		ExpiresAt: requestcontext.Now(ctx).Add(s.challengeTTL),
	}
	if err := s.challenges.Save(ctx, challenge, s.challengeTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store challenge")
	}

	s.metrics.IncrementChallenge()
	s.emit(ctx, audit.Event{
		AgentID:   agent.ID,
		Pseudonym: agent.Pseudonym.String(),
		Action:    string(audit.EventChallengeIssued),
	})
	return &ChallengeOutput{
		ChallengeID: challenge.ID,
		Nonce:       challenge.Nonce,
		ExpiresAt:   challenge.ExpiresAt,
	}, nil
}

// VerifyChallenge consumes the challenge, checks the signature over its nonce,
// and mints an access token. The challenge is spent regardless of outcome.
func (s *Service) VerifyChallenge(ctx context.Context, challengeID, signature string) (*TokenOutput, error) {
	challenge, err := s.challenges.Consume(ctx, challengeID)
	if err != nil {
		s.metrics.IncrementAuth("challenge", "failed")
		switch {
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
			s.authFailed(ctx, id.AgentID{}, "challenge_expired")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "challenge expired or unknown")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			s.authFailed(ctx, id.AgentID{}, "challenge_reused")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "challenge already used")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume challenge")
	}

	agent, err := s.agents.FindByID(ctx, challenge.AgentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		s.metrics.IncrementAuth("challenge", "failed")
		s.authFailed(ctx, agent.ID, "malformed_signature")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signature must be base64 encoded")
	}
	if err := s.verifier.Verify(agent.PublicKey, []byte(challenge.Nonce), sig); err != nil {
		s.metrics.IncrementAuth("challenge", "failed")
		s.authFailed(ctx, agent.ID, "signature_mismatch")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signature verification failed")
	}

	now := requestcontext.Now(ctx)
	agent, err = s.agents.Execute(ctx, agent.ID,
		func(a *Agent) error {
			if !a.IsActive {
				return dErrors.New(dErrors.CodeUnauthorized, "agent is deactivated")
			}
			return nil
		},
		func(a *Agent) {
			a.IsVerified = true
			a.LastActiveAt = now
		},
	)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update agent")
	}

	token, err := s.tokens.GenerateAccessToken(agent.ID, agent.Pseudonym, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.metrics.IncrementAuth("challenge", "verified")
	s.emit(ctx, audit.Event{
		AgentID:   agent.ID,
		Pseudonym: agent.Pseudonym.String(),
		Action:    string(audit.EventChallengeVerified),
	})
	return &TokenOutput{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenTTL.Seconds()),
		Pseudonym:   agent.Pseudonym,
	}, nil
}

// ResolveAPIKey maps a presented API key to its owner. Satisfies the auth
// middleware's APIKeyResolver.
func (s *Service) ResolveAPIKey(ctx context.Context, apiKey string) (id.AgentID, id.Pseudonym, error) {
	agent, err := s.agents.FindByAPIKeyHash(ctx, HashAPIKey(apiKey))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementAuth("api_key", "unknown")
			return id.AgentID{}, "", dErrors.New(dErrors.CodeUnauthorized, "unknown API key")
		}
		return id.AgentID{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve API key")
	}
	if !agent.IsActive {
		s.metrics.IncrementAuth("api_key", "deactivated")
		s.authFailed(ctx, agent.ID, "agent_deactivated")
		return id.AgentID{}, "", dErrors.New(dErrors.CodeUnauthorized, "unknown API key")
	}
	s.metrics.IncrementAuth("api_key", "resolved")
	return agent.ID, agent.Pseudonym, nil
}

// Get returns the agent record.
func (s *Service) Get(ctx context.Context, agentID id.AgentID) (*Agent, error) {
	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	return agent, nil
}

// GetByPseudonym returns the public profile behind a pseudonym.
func (s *Service) GetByPseudonym(ctx context.Context, pseudonym id.Pseudonym) (*Agent, error) {
	agent, err := s.agents.FindByPseudonym(ctx, pseudonym)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	return agent, nil
}

// Deactivate soft-disables the agent. The record and pseudonym survive so
// published works keep their attribution.
func (s *Service) Deactivate(ctx context.Context, agentID id.AgentID) (*Agent, error) {
	agent, err := s.agents.Execute(ctx, agentID,
		func(a *Agent) error { return nil },
		func(a *Agent) {
			a.IsActive = false
			a.CanReview = false
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate agent")
	}
	s.emit(ctx, audit.Event{
		AgentID:   agent.ID,
		Pseudonym: agent.Pseudonym.String(),
		Action:    string(audit.EventAgentDeactivated),
	})
	return agent, nil
}

// IncrementPapers bumps the author's paper count.
func (s *Service) IncrementPapers(ctx context.Context, agentID id.AgentID, delta int) error {
	_, err := s.agents.AddCounts(ctx, agentID, Counts{Papers: delta})
	return err
}

// IncrementReviews bumps the reviewer's review count.
func (s *Service) IncrementReviews(ctx context.Context, agentID id.AgentID, delta int) error {
	_, err := s.agents.AddCounts(ctx, agentID, Counts{Reviews: delta})
	return err
}

// IncrementCitations bumps the author's citation count.
func (s *Service) IncrementCitations(ctx context.Context, agentID id.AgentID, delta int) error {
	_, err := s.agents.AddCounts(ctx, agentID, Counts{Citations: delta})
	return err
}

func (s *Service) authFailed(ctx context.Context, agentID id.AgentID, reason string) {
	s.emit(ctx, audit.Event{
		AgentID: agentID,
		Action:  string(audit.EventAuthFailed),
		Reason:  reason,
	})
	s.logger.WarnContext(ctx, "authentication failed",
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err, "action", event.Action)
	}
}

func newAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate API key: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(raw), nil
}

func newNonce() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
