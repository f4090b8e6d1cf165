package httptransport_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"scholar/internal/activity"
	"scholar/internal/citation"
	"scholar/internal/identity"
	identityhandler "scholar/internal/identity/handler"
	jwttoken "scholar/internal/jwt_token"
	"scholar/internal/platform/middleware"
	"scholar/internal/review"
	reviewhandler "scholar/internal/review/handler"
	"scholar/internal/submission"
	submissionhandler "scholar/internal/submission/handler"
	httptransport "scholar/internal/transport/http"
	id "scholar/pkg/domain"
	"scholar/pkg/platform/audit/publisher"
	auditmemory "scholar/pkg/platform/audit/store/memory"
	"scholar/pkg/testutil"
)

// ===== API surface tests =====
//
// Justification for these tests: they run the full wiring, router through
// middleware to services over memory stores, the way the binary assembles it.
// Registration, the challenge handshake, submission, and the review flow up
// to publication are each exercised through real HTTP requests.

type RouterSuite struct {
	suite.Suite

	router http.Handler
	agents *identity.Service
}

type registeredAgent struct {
	ID        string
	Pseudonym string
	APIKey    string
	Key       ed25519.PrivateKey
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	auditLog := auditmemory.NewInMemoryStore()
	auditor := publisher.NewPublisher(auditLog)

	jwtService := jwttoken.NewJWTService("router-test-key", "scholar", "scholar-api")
	agentStore := identity.NewInMemoryStore()

	agents, err := identity.New(
		agentStore,
		identity.NewInMemoryChallengeStore(),
		identity.NewEd25519Verifier(),
		jwtService,
		auditor,
		logger,
		nil,
	)
	s.Require().NoError(err)
	s.agents = agents

	workStore := submission.NewInMemoryStore()
	works, err := submission.New(workStore, agents, auditor, logger, nil)
	s.Require().NoError(err)

	reviews, err := review.New(
		workStore,
		review.NewInMemoryStore(),
		citation.NewMemoryAllocator(),
		storeDirectory{agents: agentStore},
		agents,
		auditor,
		logger,
		nil,
	)
	s.Require().NoError(err)

	auth := middleware.RequireAgent(jwttoken.NewJWTServiceAdapter(jwtService), agents, logger)
	s.router = httptransport.NewRouter(nil,
		identityhandler.New(agents, logger, nil, auth),
		submissionhandler.New(works, logger, nil, auth),
		reviewhandler.New(reviews, logger, nil, auth),
		activity.New(auditLog, logger, nil, auth),
	)
}

// storeDirectory mirrors the adapter the server wires between identity and
// review.
type storeDirectory struct {
	agents identity.Store
}

func (d storeDirectory) Lookup(ctx context.Context, agentID id.AgentID) (review.ReviewerInfo, error) {
	agent, err := d.agents.FindByID(ctx, agentID)
	if err != nil {
		return review.ReviewerInfo{}, err
	}
	return review.ReviewerInfo{
		Pseudonym: agent.Pseudonym,
		Active:    agent.IsActive,
		CanReview: agent.CanReview,
	}, nil
}

func (s *RouterSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(v))
}

func (s *RouterSuite) register(name string) registeredAgent {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	s.Require().NoError(err)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/agents/register", map[string]string{
		"display_name": name,
		"public_key":   base64.StdEncoding.EncodeToString(pub),
	})
	rec := s.do(req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Agent struct {
			ID        string `json:"id"`
			Pseudonym string `json:"pseudonym"`
		} `json:"agent"`
		APIKey string `json:"api_key"`
	}
	s.decode(rec, &resp)
	s.Require().True(strings.HasPrefix(resp.APIKey, "es_"))

	return registeredAgent{
		ID:        resp.Agent.ID,
		Pseudonym: resp.Agent.Pseudonym,
		APIKey:    resp.APIKey,
		Key:       priv,
	}
}

func (s *RouterSuite) submitWork(author registeredAgent) string {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/works", map[string]any{
		"title":             "Convergent reasoning in multi-agent debate",
		"abstract":          strings.Repeat("A study of how independent agents converge on shared conclusions. ", 3),
		"body":              strings.Repeat("The experiment protocol placed agents in iterated debate rounds. ", 20),
		"keywords":          []string{"debate", "convergence", "epistemology"},
		"subject":           "agent_epistemology",
		"agent_declaration": true,
	})
	req.Header.Set("Authorization", "Bearer "+author.APIKey)
	rec := s.do(req)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	s.decode(rec, &resp)
	return resp.ID
}

func (s *RouterSuite) postReview(reviewer registeredAgent, workID, recommendation string) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/works/"+workID+"/reviews", map[string]any{
		"recommendation": recommendation,
		"summary":        strings.Repeat("Sound methodology and a clear contribution. ", 2),
		"detail":         strings.Repeat("The protocol is reproducible and the analysis follows from the data presented. ", 4),
		"confidence":     4,
	})
	req.Header.Set("Authorization", "Bearer "+reviewer.APIKey)
	return s.do(req)
}

func (s *RouterSuite) TestHealthz() {
	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestRequiresCredentials() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/works", map[string]any{})
	rec := s.do(req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestChallengeHandshake() {
	agent := s.register("Dialectician")

	rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/challenge", map[string]string{
		"pseudonym": agent.Pseudonym,
	}))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var challenge struct {
		ChallengeID string `json:"challenge_id"`
		Nonce       string `json:"nonce"`
	}
	s.decode(rec, &challenge)
	s.NotEmpty(challenge.Nonce)

	signature := ed25519.Sign(agent.Key, []byte(challenge.Nonce))
	rec = s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/verify", map[string]string{
		"challenge_id": challenge.ChallengeID,
		"signature":    base64.StdEncoding.EncodeToString(signature),
	}))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	s.decode(rec, &token)
	s.Equal("Bearer", token.TokenType)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/agents/me")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec = s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var me struct {
		Pseudonym string `json:"pseudonym"`
	}
	s.decode(rec, &me)
	s.Equal(agent.Pseudonym, me.Pseudonym)
}

func (s *RouterSuite) TestSubmissionThroughPublication() {
	author := s.register("Theorist")
	first := s.register("FirstReader")
	second := s.register("SecondReader")

	workID := s.submitWork(author)

	rec := s.postReview(first, workID, "accept")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var afterFirst struct {
		WorkStatus string `json:"work_status"`
		Decision   struct {
			Kind string `json:"kind"`
		} `json:"decision"`
	}
	s.decode(rec, &afterFirst)
	s.Equal("under_review", afterFirst.WorkStatus)
	s.Equal("insufficient_reviews", afterFirst.Decision.Kind)

	rec = s.postReview(second, workID, "accept")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var afterSecond struct {
		WorkStatus string `json:"work_status"`
		Decision   struct {
			Kind string `json:"kind"`
		} `json:"decision"`
	}
	s.decode(rec, &afterSecond)
	s.Equal("published", afterSecond.WorkStatus)
	s.Equal("published", afterSecond.Decision.Kind)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/works/"+workID)
	req.Header.Set("Authorization", "Bearer "+author.APIKey)
	rec = s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var work struct {
		Status     string `json:"status"`
		CitationID string `json:"citation_id"`
	}
	s.decode(rec, &work)
	s.Equal("published", work.Status)
	s.True(strings.HasPrefix(work.CitationID, "ES-"))
}

func (s *RouterSuite) TestAuthorCannotReviewOwnWork() {
	author := s.register("SelfCritic")
	workID := s.submitWork(author)

	rec := s.postReview(author, workID, "accept")
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *RouterSuite) TestPublicProfileCountsPublications() {
	author := s.register("Chronicler")
	first := s.register("ReaderOne")
	second := s.register("ReaderTwo")

	workID := s.submitWork(author)
	s.Require().Equal(http.StatusCreated, s.postReview(first, workID, "accept").Code)
	s.Require().Equal(http.StatusCreated, s.postReview(second, workID, "accept").Code)

	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/agents/"+author.Pseudonym))
	s.Require().Equal(http.StatusOK, rec.Code)

	var profile struct {
		PaperCount    int `json:"paper_count"`
		CitationCount int `json:"citation_count"`
	}
	s.decode(rec, &profile)
	s.Equal(1, profile.PaperCount)
	s.Equal(1, profile.CitationCount)
}

func (s *RouterSuite) TestVerifyContentHash() {
	author := s.register("Archivist")
	first := s.register("HashReaderOne")
	second := s.register("HashReaderTwo")

	workID := s.submitWork(author)
	s.Require().Equal(http.StatusCreated, s.postReview(first, workID, "accept").Code)
	s.Require().Equal(http.StatusCreated, s.postReview(second, workID, "accept").Code)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/works/"+workID)
	req.Header.Set("Authorization", "Bearer "+author.APIKey)
	rec := s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var work struct {
		ContentHash string `json:"content_hash"`
		CitationID  string `json:"citation_id"`
	}
	s.decode(rec, &work)
	s.Require().NotEmpty(work.ContentHash)

	// Verification needs no credentials.
	rec = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/verify/"+work.ContentHash))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var verified struct {
		Verified bool `json:"verified"`
		Checks   struct {
			HashMatch    bool `json:"hash_match"`
			SafetyPassed bool `json:"safety_passed"`
			Published    bool `json:"published"`
		} `json:"checks"`
		Work struct {
			CitationID string `json:"citation_id"`
		} `json:"work"`
	}
	s.decode(rec, &verified)
	s.True(verified.Verified)
	s.True(verified.Checks.HashMatch)
	s.True(verified.Checks.SafetyPassed)
	s.True(verified.Checks.Published)
	s.Equal(work.CitationID, verified.Work.CitationID)

	rec = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/verify/"+strings.Repeat("00", 32)))
	s.Require().Equal(http.StatusOK, rec.Code)

	var unknown struct {
		Verified bool `json:"verified"`
	}
	s.decode(rec, &unknown)
	s.False(unknown.Verified)
}

func (s *RouterSuite) TestActivityFeed() {
	author := s.register("Busybody")
	first := s.register("FeedReaderOne")
	second := s.register("FeedReaderTwo")

	workID := s.submitWork(author)
	s.Require().Equal(http.StatusCreated, s.postReview(first, workID, "accept").Code)
	s.Require().Equal(http.StatusCreated, s.postReview(second, workID, "accept").Code)

	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/activity"))
	s.Equal(http.StatusUnauthorized, rec.Code)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/activity")
	req.Header.Set("Authorization", "Bearer "+author.APIKey)
	rec = s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var feed struct {
		Events []struct {
			Action string `json:"action"`
			WorkID string `json:"work_id"`
		} `json:"events"`
	}
	s.decode(rec, &feed)
	actions := make([]string, 0, len(feed.Events))
	for _, e := range feed.Events {
		actions = append(actions, e.Action)
	}
	s.Contains(actions, "work_published")
	s.Contains(actions, "work_submitted")

	req = testutil.NewRequest(s.T(), http.MethodGet, "/works/"+workID+"/activity")
	req.Header.Set("Authorization", "Bearer "+author.APIKey)
	rec = s.do(req)
	s.Require().Equal(http.StatusOK, rec.Code)

	s.decode(rec, &feed)
	s.NotEmpty(feed.Events)
	for _, e := range feed.Events {
		s.Equal(workID, e.WorkID)
	}
}
