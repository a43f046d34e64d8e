package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xab-mack/jvmdeps/internal/classfile"
	"github.com/xab-mack/jvmdeps/internal/model"
)

// Store is a content-addressed directory of cached blobs.
type Store struct {
	dir string
}

// DefaultDir returns the per-user cache directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".jvmdeps", "cache"), nil
}

// Open returns a store rooted at dir, creating it if needed. An empty dir
// selects DefaultDir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Key computes a unique key filename using inputs (e.g., content + format tag)
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Store) Load(key string) ([]byte, bool) {
	b, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return nil, false
	}
	return b, true
}

// Store writes through a temp file so concurrent readers never see partial blobs.
func (s *Store) Store(key string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, key))
}

const refsFormat = "classrefs/v1"

type inspector struct {
	inner classfile.Inspector
	store *Store
	log   *slog.Logger
}

// NewInspector wraps an inspector with a reference cache keyed by class file content.
// Parse failures are never cached. Cache write failures are logged at debug
// and otherwise ignored.
func NewInspector(inner classfile.Inspector, store *Store, log *slog.Logger) classfile.Inspector {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &inspector{inner: inner, store: store, log: log}
}

func (c *inspector) Inspect(data []byte) (model.ArtifactSet, error) {
	key := Key(refsFormat, string(data))
	if b, ok := c.store.Load(key); ok {
		var ids []model.ArtifactID
		if err := json.Unmarshal(b, &ids); err == nil {
			return model.NewSet(ids...), nil
		}
	}
	refs, err := c.inner.Inspect(data)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(model.Sorted(refs))
	if err == nil {
		err = c.store.Store(key, b)
	}
	if err != nil {
		c.log.Debug("cache write failed", "dir", c.store.Dir(), "err", err)
	}
	return refs, nil
}
