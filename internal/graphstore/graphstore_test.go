package graphstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimgraph/internal/claim"
)

func TestAddNode_MissingPrimaryKeyFails(t *testing.T) {
	g := NewMemory(nil)
	_, err := g.AddNode(context.Background(), "claim", map[string]any{"text": "no id here"})
	assert.ErrorIs(t, err, ErrMissingPrimaryKey)
}

func TestAddEdge_UnknownEndpointFails(t *testing.T) {
	g := NewMemory(nil)
	_, err := g.AddNode(context.Background(), "claim", map[string]any{"claim_id": "c1"})
	require.NoError(t, err)
	_, err = g.AddEdge(context.Background(), "c1", "does-not-exist", claim.VerdictSupports, nil)
	assert.ErrorIs(t, err, ErrUnknownEndpoint)
}

func TestAddClaimAndRelationship_RoundTrip(t *testing.T) {
	g := NewMemory(nil)
	ctx := context.Background()

	c1 := claim.Claim{ID: "c1", PaperID: "p1", Text: "A causes B"}
	c2 := claim.Claim{ID: "c2", PaperID: "p1", Text: "A does not cause B"}
	_, err := AddClaim(ctx, g, c1)
	require.NoError(t, err)
	_, err = AddClaim(ctx, g, c2)
	require.NoError(t, err)

	result := claim.DebateResult{
		Verdict:              claim.VerdictRefutes,
		CalibratedConfidence: 0.9,
		Citations:            []string{"e1"},
		Transcript:           []string{"e1 contradicts the claim"},
	}
	_, err = AddRelationship(ctx, g, "c1", "c2", result)
	require.NoError(t, err)

	neighbors, err := g.GetNeighbors(ctx, "c1", string(claim.VerdictRefutes))
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, neighbors)

	edges, err := g.Edges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, claim.VerdictRefutes, edges[0].RelationType)
	assert.InDelta(t, 0.9, edges[0].Confidence, 1e-9)
	assert.Equal(t, []string{"e1"}, edges[0].Citations)
}

func TestGetNeighbors_SortedAndDeduped(t *testing.T) {
	g := NewMemory(nil)
	ctx := context.Background()
	for _, id := range []string{"a", "c", "b"} {
		_, err := g.AddNode(ctx, "claim", map[string]any{"claim_id": id})
		require.NoError(t, err)
	}
	_, err := g.AddEdge(ctx, "a", "c", claim.VerdictSupports, nil)
	require.NoError(t, err)
	_, err = g.AddEdge(ctx, "a", "b", claim.VerdictSupports, nil)
	require.NoError(t, err)

	neighbors, err := g.GetNeighbors(ctx, "a", string(claim.VerdictSupports))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, neighbors)
}

func TestEventLog_AppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := OpenEventLog(path)
	require.NoError(t, err)

	g := NewMemory(log)
	ctx := context.Background()
	_, err = g.AddNode(ctx, "claim", map[string]any{"claim_id": "c1"})
	require.NoError(t, err)
	_, err = g.AddNode(ctx, "claim", map[string]any{"claim_id": "c2"})
	require.NoError(t, err)
	_, err = g.AddEdge(ctx, "c1", "c2", claim.VerdictExtends, map[string]any{"confidence": 0.7})
	require.NoError(t, err)
	require.NoError(t, g.Close())

	events, err := ReplayEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventAddNode, events[0].Kind)
	assert.Equal(t, EventAddEdge, events[2].Kind)
	assert.Equal(t, "c1", events[2].FromID)
	for _, ev := range events {
		assert.False(t, ev.Timestamp.IsZero(), "persisted event must carry a wall-clock timestamp")
	}
}

func TestEventLog_AppendStampsTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := OpenEventLog(path)
	require.NoError(t, err)

	before := time.Now().UTC()
	require.NoError(t, log.Append(Event{Kind: EventAddNode, NodeID: "c1"}))
	require.NoError(t, log.Close())

	events, err := ReplayEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before))
}

func TestReplayEvents_MissingFileIsEmpty(t *testing.T) {
	events, err := ReplayEvents(filepath.Join(t.TempDir(), "does-not-exist.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOpenEventLog_BlankPathDisablesLogging(t *testing.T) {
	log, err := OpenEventLog("")
	require.NoError(t, err)
	assert.NoError(t, log.Append(Event{Kind: EventAddNode}))
	assert.NoError(t, log.Close())
}
