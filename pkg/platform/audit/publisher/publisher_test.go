package publisher

import (
	"context"
	"sync"
	"testing"
	"time"

	id "scholar/pkg/domain"
	audit "scholar/pkg/platform/audit"
	"scholar/pkg/platform/audit/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	agentID := id.NewAgentID()
	event := audit.Event{
		AgentID: agentID,
		Action:  string(audit.EventAgentRegistered),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), agentID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventAgentRegistered), events[0].Action)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	agentID := id.NewAgentID()
	event := audit.Event{
		AgentID: agentID,
		Action:  string(audit.EventWorkSubmitted),
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	// Wait for async processing
	time.Sleep(100 * time.Millisecond)

	events, err := pub.List(context.Background(), agentID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventWorkSubmitted), events[0].Action)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	agentID := id.NewAgentID()

	// Emit multiple events
	for range 10 {
		event := audit.Event{
			AgentID: agentID,
			Action:  string(audit.EventReviewSubmitted),
		}
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	// Close should drain all events
	pub.Close()

	events, err := store.ListByAgent(context.Background(), agentID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	agentID := id.NewAgentID()

	// Fill the buffer with concurrent writes
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := audit.Event{
				AgentID: agentID,
				Action:  string(audit.EventWorkSubmitted),
			}
			_ = pub.Emit(context.Background(), event)
		}()
	}
	wg.Wait()

	// Some events should have been dropped (buffer size 1)
	// Just verify no panic and publisher still works
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	agentID := id.NewAgentID()
	event := audit.Event{
		AgentID: agentID,
		Action:  string(audit.EventAgentRegistered),
		// Timestamp not set
	}

	before := time.Now()
	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)
	after := time.Now()

	events, err := pub.List(context.Background(), agentID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.True(t, !events[0].Timestamp.Before(before), "timestamp should be >= before")
	assert.True(t, !events[0].Timestamp.After(after), "timestamp should be <= after")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	agentID := id.NewAgentID()
	customTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	event := audit.Event{
		AgentID:   agentID,
		Action:    string(audit.EventAgentRegistered),
		Timestamp: customTime,
	}

	err := pub.Emit(context.Background(), event)
	require.NoError(t, err)

	events, err := pub.List(context.Background(), agentID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_ContextCancellation(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	// Fill buffer first
	_ = pub.Emit(context.Background(), audit.Event{
		AgentID: id.NewAgentID(),
		Action:  string(audit.EventWorkSubmitted),
	})

	// Wait for the event to be processed
	time.Sleep(50 * time.Millisecond)

	// Fill buffer again
	_ = pub.Emit(context.Background(), audit.Event{
		AgentID: id.NewAgentID(),
		Action:  string(audit.EventWorkSubmitted),
	})

	// Try to emit with cancelled context when buffer is full
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{
		AgentID: id.NewAgentID(),
		Action:  string(audit.EventWorkSubmitted),
	})

	// Should either succeed (buffer not full) or return context error or buffer full error
	if err != nil {
		assert.True(t, err == context.Canceled || err.Error() == "audit buffer full",
			"expected context.Canceled or buffer full error, got: %v", err)
	}
}

func TestPublisher_MultipleEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	agentID := id.NewAgentID()

	events := []audit.Event{
		{AgentID: agentID, Action: string(audit.EventAgentRegistered)},
		{AgentID: agentID, Action: string(audit.EventWorkSubmitted)},
		{AgentID: agentID, Action: string(audit.EventWorkPublished)},
	}

	for _, event := range events {
		err := pub.Emit(context.Background(), event)
		require.NoError(t, err)
	}

	result, err := pub.List(context.Background(), agentID)
	require.NoError(t, err)
	require.Len(t, result, 3)

	assert.Equal(t, string(audit.EventAgentRegistered), result[0].Action)
	assert.Equal(t, string(audit.EventWorkSubmitted), result[1].Action)
	assert.Equal(t, string(audit.EventWorkPublished), result[2].Action)
}

func TestPublisher_DifferentAgents(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	agentID1 := id.NewAgentID()
	agentID2 := id.NewAgentID()

	err := pub.Emit(context.Background(), audit.Event{
		AgentID: agentID1,
		Action:  string(audit.EventWorkSubmitted),
	})
	require.NoError(t, err)

	err = pub.Emit(context.Background(), audit.Event{
		AgentID: agentID2,
		Action:  string(audit.EventReviewSubmitted),
	})
	require.NoError(t, err)

	events1, err := pub.List(context.Background(), agentID1)
	require.NoError(t, err)
	require.Len(t, events1, 1)
	assert.Equal(t, string(audit.EventWorkSubmitted), events1[0].Action)

	events2, err := pub.List(context.Background(), agentID2)
	require.NoError(t, err)
	require.Len(t, events2, 1)
	assert.Equal(t, string(audit.EventReviewSubmitted), events2[0].Action)
}
