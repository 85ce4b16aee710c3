package dedup

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

func (e *Engine) hashPath() string       { return filepath.Join(e.dataDir, "file_hashes.json") }
func (e *Engine) doiPath() string        { return filepath.Join(e.dataDir, "doi_mapping.json") }
func (e *Engine) arxivPath() string      { return filepath.Join(e.dataDir, "arxiv_mapping.json") }
func (e *Engine) embeddingsPath() string { return filepath.Join(e.dataDir, "embeddings.gob") }

// saveJSON writes data to path via write-temp-then-rename, so a crash
// mid-write never corrupts an existing registry file.
func (e *Engine) saveJSON(path string, data any) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("dedup: marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("dedup: write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func loadJSON[T any](path string, into *T) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dedup: read %s: %w", path, err)
	}
	return json.Unmarshal(data, into)
}

// saveEmbeddings persists the embeddings registry as a gob-encoded
// map[string][]float32, write-temp-then-rename. No third-party array-file
// writer exists in the corpus, so this side-table alone falls back to the
// standard library's binary codec rather than JSON.
func (e *Engine) saveEmbeddings() error {
	m := make(map[string][]float32, len(e.embeddingIDs))
	for i, id := range e.embeddingIDs {
		m[id] = e.embeddingVecs[i]
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("dedup: encode embeddings: %w", err)
	}
	path := e.embeddingsPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("dedup: write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func (e *Engine) loadEmbeddings() error {
	data, err := os.ReadFile(e.embeddingsPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dedup: read %s: %w", e.embeddingsPath(), err)
	}
	var m map[string][]float32
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return fmt.Errorf("dedup: decode embeddings: %w", err)
	}
	e.embeddingIDs = make([]string, 0, len(m))
	e.embeddingVecs = make([][]float32, 0, len(m))
	for id, vec := range m {
		e.embeddingIDs = append(e.embeddingIDs, id)
		e.embeddingVecs = append(e.embeddingVecs, vec)
	}
	sortParallelByID(e.embeddingIDs, e.embeddingVecs)
	return nil
}

// sortParallelByID orders both slices by id so load output is deterministic
// despite gob's unordered map decoding.
func sortParallelByID(ids []string, vecs [][]float32) {
	sort.Sort(&byIDPair{ids, vecs})
}

type byIDPair struct {
	ids  []string
	vecs [][]float32
}

func (p *byIDPair) Len() int           { return len(p.ids) }
func (p *byIDPair) Less(i, j int) bool { return p.ids[i] < p.ids[j] }
func (p *byIDPair) Swap(i, j int) {
	p.ids[i], p.ids[j] = p.ids[j], p.ids[i]
	p.vecs[i], p.vecs[j] = p.vecs[j], p.vecs[i]
}

// load restores all four side-tables from disk; a missing file for any
// table is treated as an empty table, matching the Python source's
// _load_json default-on-missing behaviour.
func (e *Engine) load() error {
	if err := loadJSON(e.hashPath(), &e.fileHashes); err != nil {
		return err
	}
	if e.fileHashes == nil {
		e.fileHashes = map[string]string{}
	}
	if err := loadJSON(e.doiPath(), &e.doiMapping); err != nil {
		return err
	}
	if e.doiMapping == nil {
		e.doiMapping = map[string]string{}
	}
	if err := loadJSON(e.arxivPath(), &e.arxivMapping); err != nil {
		return err
	}
	if e.arxivMapping == nil {
		e.arxivMapping = map[string]arxivEntry{}
	}
	return e.loadEmbeddings()
}
