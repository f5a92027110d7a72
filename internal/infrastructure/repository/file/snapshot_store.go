package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/dowdarts/aadsstatsscrapper/internal/domain/standings"
)

// SnapshotStore persists the full store snapshot as one JSON document.
// Saves are full-replace: the snapshot is encoded into a temp file beside
// the target and renamed over it, so a crash mid-save never leaves a
// truncated database behind.
type SnapshotStore struct {
	mu   sync.Mutex
	path string
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

func (s *SnapshotStore) Load(_ context.Context) (standings.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return standings.Snapshot{}, false, nil
	}
	if err != nil {
		return standings.Snapshot{}, false, errors.Wrap(err, "read snapshot file")
	}

	var snapshot standings.Snapshot
	if err := sonic.Unmarshal(raw, &snapshot); err != nil {
		return standings.Snapshot{}, false, errors.Wrap(err, "decode snapshot file")
	}
	return snapshot, true, nil
}

func (s *SnapshotStore) Save(_ context.Context, snapshot standings.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	raw, err := sonic.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if _, err := buf.Write(raw); err != nil {
		return errors.Wrap(err, "buffer snapshot")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create snapshot dir")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp snapshot")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "write temp snapshot")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "close temp snapshot")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "replace snapshot file")
	}
	return nil
}
