package claim

import "testing"

func TestDeriveID_Deterministic(t *testing.T) {
	a := DeriveID("P1", "Self-attention improves translation quality.")
	b := DeriveID("P1", "Self-attention improves translation quality.")
	if a != b {
		t.Fatalf("DeriveID not deterministic: %q != %q", a, b)
	}
}

func TestDeriveID_DifferentPapersDiffer(t *testing.T) {
	a := DeriveID("P1", "same text")
	b := DeriveID("P2", "same text")
	if a == b {
		t.Fatalf("expected different ids for different papers, got %q", a)
	}
}

func TestCanonicalPairKey_OrderIndependent(t *testing.T) {
	k1 := CanonicalPairKey("claim_b", "claim_a")
	k2 := CanonicalPairKey("claim_a", "claim_b")
	if k1 != k2 {
		t.Fatalf("canonical key should be order independent: %q != %q", k1, k2)
	}
	if k1 != "claim_a_claim_b" {
		t.Fatalf("unexpected canonical key: %q", k1)
	}
}
