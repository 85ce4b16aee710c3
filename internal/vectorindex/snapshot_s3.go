package vectorindex

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"claimgraph/internal/objectstore"
)

// PushSnapshotS3 snapshots idx to a local temp file, then uploads it to
// store under key, so the index survives loss of local disk. The memory
// backend is the only one with a non-trivial Snapshot; Postgres and Qdrant
// already durable, so this is a no-op cost for them beyond the empty
// temp-file round trip.
func PushSnapshotS3(ctx context.Context, store objectstore.ObjectStore, key string, idx Index) error {
	tmp, err := os.CreateTemp("", "vectorindex-snapshot-*.gob")
	if err != nil {
		return fmt.Errorf("vectorindex: create temp snapshot: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := idx.Snapshot(path); err != nil {
		return fmt.Errorf("vectorindex: local snapshot: %w", err)
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("vectorindex: read local snapshot: %w", err)
	}
	if _, err := store.Put(ctx, key, bytes.NewReader(data), objectstore.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		return fmt.Errorf("vectorindex: upload snapshot: %w", err)
	}
	return nil
}

// PullSnapshotS3 downloads the snapshot at key from store and restores it
// into idx. A missing object is treated as "nothing to restore", so a
// first-ever boot with no prior snapshot proceeds with an empty index.
func PullSnapshotS3(ctx context.Context, store objectstore.ObjectStore, key string, idx Index) error {
	r, _, err := store.Get(ctx, key)
	if err == objectstore.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("vectorindex: download snapshot: %w", err)
	}
	defer r.Close()

	tmp, err := os.CreateTemp("", "vectorindex-restore-*.gob")
	if err != nil {
		return fmt.Errorf("vectorindex: create temp restore file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("vectorindex: write temp restore file: %w", err)
	}
	tmp.Close()

	return idx.Restore(path)
}
