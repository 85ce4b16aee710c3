package claim

import (
	"hash/fnv"
	"strconv"
)

// DeriveID computes the stable claim_id for a claim whose id has not already
// been assigned by the extractor: "{paper_id}_{hash64(text) mod 100000}".
// Collisions within a paper are permitted; callers are expected to log them.
func DeriveID(paperID, text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	bucket := h.Sum64() % 100000
	return paperID + "_" + strconv.FormatUint(bucket, 10)
}

// CanonicalPairKey computes the canonical adjudication cache key for an
// unordered claim pair: the two ids sorted lexically and joined with "_".
func CanonicalPairKey(idA, idB string) string {
	if idA > idB {
		idA, idB = idB, idA
	}
	return idA + "_" + idB
}
