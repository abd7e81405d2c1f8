package service

import (
	"context"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
)

// SnapshotStore keeps serialized sessions between front-end lifetimes.
// Load returns ErrNoSavedSession when nothing is stored under key and an
// error wrapping ErrInvalidSnapshot when the stored data is unusable.
type SnapshotStore interface {
	Save(ctx context.Context, key string, snap Snapshot) error
	Load(ctx context.Context, key string) (Snapshot, error)
	Delete(ctx context.Context, key string) error
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// FileSnapshotStore writes one JSON file per key.
type FileSnapshotStore struct {
	dir string
}

func NewFileSnapshotStore(dir string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create snapshot dir %s", dir)
	}
	return &FileSnapshotStore{dir: dir}, nil
}

func (f *FileSnapshotStore) path(key string) string {
	return filepath.Join(f.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

// Save replaces the snapshot atomically: a reader sees the old file or the
// new one, never a partial write.
func (f *FileSnapshotStore) Save(_ context.Context, key string, snap Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}

	tmp, err := os.CreateTemp(f.dir, "snapshot-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp snapshot")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close snapshot")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.path(key)), "rename snapshot")
}

func (f *FileSnapshotStore) Load(_ context.Context, key string) (Snapshot, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return Snapshot{}, ErrNoSavedSession
	}
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "read snapshot")
	}
	return DecodeSnapshot(data)
}

func (f *FileSnapshotStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "delete snapshot")
	}
	return nil
}
