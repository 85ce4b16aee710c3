// Package embedding provides the Provider abstraction used to turn claim and
// query text into fixed-dimension unit-norm vectors, plus an HTTP-backed
// implementation and a deterministic test double.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"claimgraph/internal/config"
)

// Provider converts text into embedding vectors. The same Provider must
// embed both claims and queries, otherwise similarity scores are
// meaningless.
type Provider interface {
	// Embed returns one unit-norm vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the embedding dimensionality.
	Dimension() int
	// Ping checks that the embedding backend is reachable.
	Ping(ctx context.Context) error
}

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// httpProvider calls a configured HTTP embedding endpoint, one request per
// input batch, matching the server-side batching semantics of the
// embedding service it is wired to.
type httpProvider struct {
	cfg    config.EmbeddingConfig
	client *http.Client
	mu     sync.Mutex
}

// NewHTTP constructs a Provider backed by the configured HTTP endpoint.
func NewHTTP(cfg config.EmbeddingConfig) Provider {
	return &httpProvider{cfg: cfg, client: http.DefaultClient}
}

func (p *httpProvider) Dimension() int { return p.cfg.Dimensions }

func (p *httpProvider) Ping(ctx context.Context) error {
	_, err := p.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embedding endpoint reachability check failed: %w", err)
	}
	return nil
}

func (p *httpProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no inputs")
	}
	// Serialize requests: some local embedding servers (e.g. llama.cpp)
	// mis-batch concurrent calls sharing a context.
	p.mu.Lock()
	defer p.mu.Unlock()
	reqBody, err := json.Marshal(embedReq{Model: p.cfg.Model, Input: texts})
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(p.cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := p.cfg.BaseURL + p.cfg.Path
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	if p.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	} else if p.cfg.APIHeader != "" {
		req.Header.Set(p.cfg.APIHeader, p.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embeddings error: %s: %s", resp.Status, string(body))
	}

	var er embedResp
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected embedding count: got %d, want %d", len(er.Data), len(texts))
	}
	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = normalize(er.Data[i].Embedding)
	}
	return out, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

// deterministicProvider hashes byte trigrams into a fixed-size, L2-normalized
// vector. It is used in tests so embedding never needs a live service.
type deterministicProvider struct {
	dim  int
	seed uint64
}

// NewDeterministic constructs a reproducible Provider suitable for tests.
func NewDeterministic(dim int, seed uint64) Provider {
	if dim <= 0 {
		dim = 64
	}
	return &deterministicProvider{dim: dim, seed: seed}
}

func (d *deterministicProvider) Dimension() int                      { return d.dim }
func (d *deterministicProvider) Ping(context.Context) error          { return nil }

func (d *deterministicProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *deterministicProvider) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	b := []byte(s)
	if len(b) < 3 {
		d.addGram(b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			d.addGram(b[i:i+3], v)
		}
	}
	return normalize(v)
}

func (d *deterministicProvider) addGram(gram []byte, v []float32) {
	h := fnv.New64a()
	if d.seed != 0 {
		var tmp [8]byte
		for i := 0; i < 8; i++ {
			tmp[i] = byte(d.seed >> (8 * i))
		}
		_, _ = h.Write(tmp[:])
	}
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
