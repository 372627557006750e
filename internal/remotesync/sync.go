package remotesync

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Object describes a stored object.
type Object struct {
	Key  string
	Size int64
}

// ObjectStore is the storage backend used by Syncer.
type ObjectStore interface {
	// List returns every object whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Get opens the object at key. A missing object yields fs.ErrNotExist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put stores size bytes read from body at key, replacing any existing
	// object.
	Put(ctx context.Context, key string, body io.Reader, size int64) error
}

// Result summarizes a transfer.
type Result struct {
	Files int
	Bytes int64
}

// Syncer copies directories between the local filesystem and an ObjectStore.
type Syncer struct {
	store  ObjectStore
	logger *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger for per-file transfer messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Syncer. A nil store yields a disabled Syncer.
func New(store ObjectStore, opts ...Option) *Syncer {
	s := &Syncer{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether the Syncer has a backing store.
func (s *Syncer) Enabled() bool {
	return s != nil && s.store != nil
}

// Pull downloads every object under prefix into localDir. Each file is
// written to a temporary name and renamed into place. Stale SQLite sidecars
// of a replaced file are removed.
func (s *Syncer) Pull(ctx context.Context, prefix, localDir string) (Result, error) {
	var res Result
	if !s.Enabled() {
		return res, nil
	}

	listPrefix := keyPrefix(prefix)
	objects, err := s.store.List(ctx, listPrefix)
	if err != nil {
		return res, fmt.Errorf("failed to list %q: %w", listPrefix, err)
	}

	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, listPrefix)
		if rel == "" || strings.HasSuffix(rel, "/") || isSidecar(rel) {
			continue
		}
		dest, err := localPath(localDir, rel)
		if err != nil {
			return res, fmt.Errorf("%w: %s", err, obj.Key)
		}

		n, err := s.download(ctx, obj.Key, dest)
		if err != nil {
			return res, fmt.Errorf("failed to download %s: %w", obj.Key, err)
		}
		removeSidecars(dest)

		s.logger.Debug("pulled object", "key", obj.Key, "path", dest, "bytes", n)
		res.Files++
		res.Bytes += n
	}
	return res, nil
}

func (s *Syncer) download(ctx context.Context, key, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return 0, err
	}

	body, err := s.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := io.Copy(tmp, body)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return 0, err
	}
	return n, nil
}

// Push uploads every regular file under localDir to prefix. SQLite sidecars
// and in-progress temporary files are skipped.
func (s *Syncer) Push(ctx context.Context, localDir, prefix string) (Result, error) {
	var res Result
	if !s.Enabled() {
		return res, nil
	}

	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if isSidecar(name) || strings.HasPrefix(name, ".") {
			return nil
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		key := keyPrefix(prefix) + filepath.ToSlash(rel)

		n, err := s.upload(ctx, p, key)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", p, err)
		}
		s.logger.Debug("pushed object", "key", key, "path", p, "bytes", n)
		res.Files++
		res.Bytes += n
		return nil
	})
	return res, err
}

func (s *Syncer) upload(ctx context.Context, p, key string) (int64, error) {
	f, err := os.Open(p) //nolint:gosec // path comes from WalkDir over our own directory
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := s.store.Put(ctx, key, f, fi.Size()); err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// keyPrefix normalizes prefix to "" or "a/b/".
func keyPrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// localPath maps a slash-separated relative key onto dir, rejecting keys
// that would leave it.
func localPath(dir, rel string) (string, error) {
	clean := path.Clean(rel)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrUnsafeKey
	}
	return filepath.Join(dir, filepath.FromSlash(clean)), nil
}

var sidecarSuffixes = []string{"-wal", "-shm", "-journal"}

func isSidecar(name string) bool {
	for _, suffix := range sidecarSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func removeSidecars(p string) {
	for _, suffix := range sidecarSuffixes {
		_ = os.Remove(p + suffix)
	}
}
