package causalgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"claimgraph/internal/claim"
)

func buildChain(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		g.AddClaim(claim.Claim{ID: id, PaperID: "p1", Text: id})
	}
	return g
}

func TestFindContradictions_ThresholdAndOrder(t *testing.T) {
	g := buildChain(t)
	g.AddRelationship("c1", "c2", claim.DebateResult{Verdict: claim.VerdictRefutes, CalibratedConfidence: 0.90})
	g.AddRelationship("c3", "c4", claim.DebateResult{Verdict: claim.VerdictRefutes, CalibratedConfidence: 0.70})

	got := g.FindContradictions(0.85)
	assert.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].FromID)
	assert.Equal(t, "c2", got[0].ToID)
}

func TestFindUnsupportedClaims_ExcludesSupported(t *testing.T) {
	g := buildChain(t)
	g.AddRelationship("c1", "c2", claim.DebateResult{Verdict: claim.VerdictSupports, CalibratedConfidence: 0.9})
	g.AddRelationship("c3", "c4", claim.DebateResult{Verdict: claim.VerdictRefutes, CalibratedConfidence: 0.9})

	got := g.FindUnsupportedClaims(0)
	assert.Contains(t, got, "c1")
	assert.Contains(t, got, "c3")
	assert.Contains(t, got, "c4")
	assert.NotContains(t, got, "c2")
}

func TestFindFrontierEdges_ClassifiesGapType(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		g.AddClaim(claim.Claim{ID: id})
	}
	// give a and b degree >= 3 each via extra edges
	g.AddRelationship("a", "c", claim.DebateResult{Verdict: claim.VerdictSupports, CalibratedConfidence: 0.9})
	g.AddRelationship("a", "d", claim.DebateResult{Verdict: claim.VerdictSupports, CalibratedConfidence: 0.9})
	g.AddRelationship("b", "e", claim.DebateResult{Verdict: claim.VerdictSupports, CalibratedConfidence: 0.9})
	g.AddRelationship("b", "f", claim.DebateResult{Verdict: claim.VerdictSupports, CalibratedConfidence: 0.9})
	g.AddRelationship("a", "b", claim.DebateResult{Verdict: claim.VerdictRefutes, CalibratedConfidence: 0.5})

	got := g.FindFrontierEdges(0.6, 3)
	assert.Len(t, got, 1)
	assert.Equal(t, GapMethodological, got[0].GapType)
}

func TestClassifyGapType(t *testing.T) {
	assert.Equal(t, GapMethodological, classifyGapType(claim.VerdictRefutes, 0.5))
	assert.Equal(t, GapValidationNeeded, classifyGapType(claim.VerdictUncertain, 0.5))
	assert.Equal(t, GapFrontierSynthesis, classifyGapType(claim.VerdictExtends, 0.5))
	assert.Equal(t, GapFrontierSynthesis, classifyGapType(claim.VerdictRefutes, 0.8))
}

func TestEvidencePath_ShortestUndirected(t *testing.T) {
	g := buildChain(t)
	g.AddRelationship("c1", "c2", claim.DebateResult{Verdict: claim.VerdictSupports, CalibratedConfidence: 0.9})
	g.AddRelationship("c2", "c3", claim.DebateResult{Verdict: claim.VerdictRefutes, CalibratedConfidence: 0.9})

	got := g.EvidencePath("c1", "c3")
	assert.Equal(t, []string{"c1", "c2", "c3"}, got)
}

func TestEvidencePath_NoPathIsEmpty(t *testing.T) {
	g := buildChain(t)
	got := g.EvidencePath("c1", "c4")
	assert.Empty(t, got)
}

func TestClaimImportance_EmptyGraphIsZero(t *testing.T) {
	g := New()
	assert.Equal(t, 0.0, g.ClaimImportance("nonexistent"))
}

func TestClaimImportance_HubScoresHigherThanLeaf(t *testing.T) {
	g := New()
	for _, id := range []string{"hub", "a", "b", "c"} {
		g.AddClaim(claim.Claim{ID: id})
	}
	g.AddRelationship("a", "hub", claim.DebateResult{Verdict: claim.VerdictSupports, CalibratedConfidence: 0.9})
	g.AddRelationship("b", "hub", claim.DebateResult{Verdict: claim.VerdictSupports, CalibratedConfidence: 0.9})
	g.AddRelationship("c", "hub", claim.DebateResult{Verdict: claim.VerdictSupports, CalibratedConfidence: 0.9})

	hubScore := g.ClaimImportance("hub")
	leafScore := g.ClaimImportance("a")
	assert.Greater(t, hubScore, leafScore)
}

func TestAddRelationship_InvalidatesContradictionCache(t *testing.T) {
	g := buildChain(t)
	g.AddRelationship("c1", "c2", claim.DebateResult{Verdict: claim.VerdictRefutes, CalibratedConfidence: 0.9})
	first := g.FindContradictions(0.85)
	assert.Len(t, first, 1)

	g.AddRelationship("c3", "c4", claim.DebateResult{Verdict: claim.VerdictRefutes, CalibratedConfidence: 0.95})
	second := g.FindContradictions(0.85)
	assert.Len(t, second, 2)
}
