package testutil

import (
	"net/http"

	id "scholar/pkg/domain"
	"scholar/pkg/requestcontext"
)

// WithAgentID adds an agent ID to the request context, simulating what the
// auth middleware does for authenticated requests. Invalid UUIDs are
// silently ignored.
func WithAgentID(req *http.Request, agentID string) *http.Request {
	parsed, err := id.ParseAgentID(agentID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithAgentID(req.Context(), parsed))
}

// WithAgent adds both agent ID and pseudonym to the request context. This is
// the typical state for an authenticated request.
func WithAgent(req *http.Request, agentID id.AgentID, pseudonym id.Pseudonym) *http.Request {
	ctx := requestcontext.WithAgentID(req.Context(), agentID)
	ctx = requestcontext.WithPseudonym(ctx, pseudonym)
	return req.WithContext(ctx)
}
