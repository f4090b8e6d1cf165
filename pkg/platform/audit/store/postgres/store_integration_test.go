//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "scholar/pkg/domain"
	audit "scholar/pkg/platform/audit"
	auditpostgres "scholar/pkg/platform/audit/store/postgres"
	txcontext "scholar/pkg/platform/tx"
	"scholar/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *auditpostgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = auditpostgres.New(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.pg.TruncateAll(s.T())
}

func (s *PostgresStoreSuite) event(agentID id.AgentID, action string) audit.Event {
	return audit.Event{
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		AgentID:   agentID,
		Pseudonym: "GlassHarbor-7f3a",
		Action:    action,
		RequestID: uuid.NewString(),
	}
}

func (s *PostgresStoreSuite) TestAppendWritesEventAndOutboxRow() {
	ctx := context.Background()
	agentID := id.AgentID(uuid.New())

	err := s.store.Append(ctx, s.event(agentID, string(audit.EventWorkPublished)))
	s.Require().NoError(err)

	events, err := s.store.ListByAgent(ctx, agentID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventWorkPublished), events[0].Action)
	s.Equal(audit.CategoryCompliance, events[0].Category)

	var pending int
	err = s.pg.DB.QueryRow(`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending)
	s.Require().NoError(err)
	s.Equal(1, pending)
}

func (s *PostgresStoreSuite) TestAppendJoinsAmbientTransaction() {
	ctx := context.Background()
	agentID := id.AgentID(uuid.New())

	tx, err := s.pg.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)

	err = s.store.Append(txcontext.With(ctx, tx), s.event(agentID, string(audit.EventWorkSubmitted)))
	s.Require().NoError(err)
	s.Require().NoError(tx.Rollback())

	// The rollback takes the event and its outbox row with it.
	events, err := s.store.ListByAgent(ctx, agentID)
	s.Require().NoError(err)
	s.Empty(events)

	var pending int
	err = s.pg.DB.QueryRow(`SELECT COUNT(*) FROM outbox`).Scan(&pending)
	s.Require().NoError(err)
	s.Zero(pending)
}

func (s *PostgresStoreSuite) TestListRecentOrdersNewestFirst() {
	ctx := context.Background()
	agentID := id.AgentID(uuid.New())

	first := s.event(agentID, string(audit.EventChallengeIssued))
	second := s.event(agentID, string(audit.EventChallengeVerified))
	second.Timestamp = first.Timestamp.Add(time.Second)

	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventChallengeVerified), events[0].Action)
	s.Equal(string(audit.EventChallengeIssued), events[1].Action)
}

func (s *PostgresStoreSuite) TestListByWorkFiltersOtherWorks() {
	ctx := context.Background()
	agentID := id.AgentID(uuid.New())
	workID := id.WorkID(uuid.New())

	mine := s.event(agentID, string(audit.EventWorkSubmitted))
	mine.WorkID = workID
	other := s.event(agentID, string(audit.EventWorkSubmitted))
	other.WorkID = id.WorkID(uuid.New())

	s.Require().NoError(s.store.Append(ctx, mine))
	s.Require().NoError(s.store.Append(ctx, other))

	events, err := s.store.ListByWork(ctx, workID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(workID, events[0].WorkID)
}
