package dedup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"claimgraph/internal/objectstore"
)

// snapshotFiles lists the four registry side-table files mirrored to
// object storage cold storage.
func (e *Engine) snapshotFiles() []string {
	return []string{e.hashPath(), e.doiPath(), e.arxivPath(), e.embeddingsPath()}
}

// PushSnapshotS3 uploads each registry side-table file under prefix, so the
// dedup registry survives loss of local disk.
func (e *Engine) PushSnapshotS3(ctx context.Context, store objectstore.ObjectStore, prefix string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, path := range e.snapshotFiles() {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("dedup: read %s: %w", path, err)
		}
		key := prefix + "/" + filepath.Base(path)
		if _, err := store.Put(ctx, key, bytes.NewReader(data), objectstore.PutOptions{ContentType: "application/octet-stream"}); err != nil {
			return fmt.Errorf("dedup: upload %s: %w", key, err)
		}
	}
	return nil
}

// PullSnapshotS3 downloads each registry side-table file from prefix into
// the engine's data directory, then reloads the in-memory registries from
// what it finds. Call this once at startup before the engine handles any
// duplicate checks.
func (e *Engine) PullSnapshotS3(ctx context.Context, store objectstore.ObjectStore, prefix string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, path := range e.snapshotFiles() {
		key := prefix + "/" + filepath.Base(path)
		r, _, err := store.Get(ctx, key)
		if err == objectstore.ErrNotFound {
			continue
		}
		if err != nil {
			return fmt.Errorf("dedup: download %s: %w", key, err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return fmt.Errorf("dedup: read %s: %w", key, err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("dedup: write %s: %w", path, err)
		}
	}
	return e.load()
}
