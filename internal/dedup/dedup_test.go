package dedup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paper.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCheckDuplicate_ExactFileHash(t *testing.T) {
	e, err := New(t.TempDir(), false, 0, nil)
	require.NoError(t, err)

	path := writeTempFile(t, "paper contents")
	require.NoError(t, e.RegisterPaper("paper_1", path, Metadata{}, nil, "2026-01-01T00:00:00Z"))

	result, err := e.CheckDuplicate(path, Metadata{}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusExactDuplicate, result.Status)
	assert.Equal(t, "paper_1", result.ExistingID)
}

func TestCheckDuplicate_DOI(t *testing.T) {
	e, err := New(t.TempDir(), false, 0, nil)
	require.NoError(t, err)

	p1 := writeTempFile(t, "one")
	require.NoError(t, e.RegisterPaper("paper_1", p1, Metadata{DOI: "10.1/x"}, nil, ""))

	p2 := writeTempFile(t, "different bytes entirely")
	result, err := e.CheckDuplicate(p2, Metadata{DOI: "10.1/x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusDOIDuplicate, result.Status)
	assert.Equal(t, "paper_1", result.ExistingID)
}

func TestExtractArxivID_DirectField(t *testing.T) {
	got := extractArxivID(Metadata{ArxivID: " 2103.12345 "})
	assert.Equal(t, "2103.12345", got)
}

func TestExtractArxivID_FromURL(t *testing.T) {
	got := extractArxivID(Metadata{URL: "https://arxiv.org/pdf/2103.12345v2.pdf"})
	assert.Equal(t, "2103.12345v2", got)
}

func TestExtractArxivID_FromTitle(t *testing.T) {
	got := extractArxivID(Metadata{Title: "Attention Is All You Need [arXiv:1706.03762v5]"})
	assert.Equal(t, "1706.03762v5", got)
}

func TestExtractArxivID_PrefersDirectFieldOverURL(t *testing.T) {
	got := extractArxivID(Metadata{ArxivID: "9999.99999", URL: "https://arxiv.org/abs/2103.12345"})
	assert.Equal(t, "9999.99999", got)
}

func TestParseArxivVersion(t *testing.T) {
	base, v := parseArxivVersion("2103.12345v3")
	assert.Equal(t, "2103.12345", base)
	assert.Equal(t, 3, v)

	base, v = parseArxivVersion("2103.12345")
	assert.Equal(t, "2103.12345", base)
	assert.Equal(t, 1, v)
}

func TestCheckDuplicate_ArxivVersionUpdate(t *testing.T) {
	e, err := New(t.TempDir(), false, 0, nil)
	require.NoError(t, err)

	p1 := writeTempFile(t, "v1 text")
	require.NoError(t, e.RegisterPaper("paper_1", p1, Metadata{ArxivID: "2103.12345v1"}, nil, ""))

	p2 := writeTempFile(t, "v2 text, quite different")
	result, err := e.CheckDuplicate(p2, Metadata{ArxivID: "2103.12345v2"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusVersionUpdate, result.Status)
	assert.True(t, result.ShouldReplace)
	assert.Equal(t, "paper_1", result.ExistingID)
}

func TestCheckDuplicate_ArxivSameVersionIsExact(t *testing.T) {
	e, err := New(t.TempDir(), false, 0, nil)
	require.NoError(t, err)

	p1 := writeTempFile(t, "v1 text")
	require.NoError(t, e.RegisterPaper("paper_1", p1, Metadata{ArxivID: "2103.12345v1"}, nil, ""))

	p2 := writeTempFile(t, "different content but same version")
	result, err := e.CheckDuplicate(p2, Metadata{ArxivID: "2103.12345v1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusExactDuplicate, result.Status)
}

func TestCheckDuplicate_SemanticSimilarity(t *testing.T) {
	e, err := New(t.TempDir(), false, 0.95, nil)
	require.NoError(t, err)

	p1 := writeTempFile(t, "first paper")
	require.NoError(t, e.RegisterPaper("paper_1", p1, Metadata{}, []float32{1, 0, 0}, ""))

	p2 := writeTempFile(t, "near-identical second paper")
	result, err := e.CheckDuplicate(p2, Metadata{}, []float32{0.999, 0.001, 0})
	require.NoError(t, err)
	assert.Equal(t, StatusSemanticDup, result.Status)
	assert.Equal(t, "paper_1", result.ExistingID)
}

func TestCheckDuplicate_New(t *testing.T) {
	e, err := New(t.TempDir(), false, 0, nil)
	require.NoError(t, err)

	p := writeTempFile(t, "brand new paper")
	result, err := e.CheckDuplicate(p, Metadata{DOI: "10.9/unused"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, result.Status)
}

func TestValidationMode_SuppressesAllFourBranches(t *testing.T) {
	e, err := New(t.TempDir(), true, 0.95, nil)
	require.NoError(t, err)

	p1 := writeTempFile(t, "exact dup source")
	require.NoError(t, e.RegisterPaper("paper_1", p1, Metadata{DOI: "10.1/x"}, []float32{1, 0}, ""))

	result, err := e.CheckDuplicate(p1, Metadata{DOI: "10.1/x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, result.Status, "exact-hash branch must be suppressed in validation mode")

	p2 := writeTempFile(t, "different bytes for doi case")
	result, err = e.CheckDuplicate(p2, Metadata{DOI: "10.1/x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, result.Status, "doi branch must be suppressed in validation mode")

	p3 := writeTempFile(t, "different bytes for semantic case")
	result, err = e.CheckDuplicate(p3, Metadata{}, []float32{0.999, 0.001})
	require.NoError(t, err)
	assert.Equal(t, StatusNew, result.Status, "semantic branch must be suppressed too: Go diverges from the source here")
}

func TestRemovePaper_ClearsAllTables(t *testing.T) {
	e, err := New(t.TempDir(), false, 0, nil)
	require.NoError(t, err)

	p1 := writeTempFile(t, "removable paper")
	require.NoError(t, e.RegisterPaper("paper_1", p1, Metadata{DOI: "10.1/y", ArxivID: "1111.11111"}, []float32{1, 0}, ""))
	require.NoError(t, e.RemovePaper("paper_1"))

	stats := e.Stats()
	assert.Equal(t, 0, stats.TotalHashes)
	assert.Equal(t, 0, stats.TotalDOIs)
	assert.Equal(t, 0, stats.TotalEmbeddings)

	result, err := e.CheckDuplicate(p1, Metadata{DOI: "10.1/y"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusNew, result.Status)
}

func TestStats_CountsAcrossTables(t *testing.T) {
	e, err := New(t.TempDir(), false, 0, nil)
	require.NoError(t, err)

	p := writeTempFile(t, "stats paper")
	require.NoError(t, e.RegisterPaper("paper_1", p, Metadata{DOI: "10.1/z"}, []float32{1, 0}, ""))

	stats := e.Stats()
	assert.Equal(t, 1, stats.TotalHashes)
	assert.Equal(t, 1, stats.TotalDOIs)
	assert.Equal(t, 1, stats.TotalEmbeddings)
}

func TestEngine_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	e1, err := New(dir, false, 0, nil)
	require.NoError(t, err)
	p := writeTempFile(t, "persisted paper")
	require.NoError(t, e1.RegisterPaper("paper_1", p, Metadata{DOI: "10.1/persisted"}, nil, ""))

	e2, err := New(dir, false, 0, nil)
	require.NoError(t, err)
	result, err := e2.CheckDuplicate(p, Metadata{}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusExactDuplicate, result.Status)
}
