// internal/repo/repo.go
package repo

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"tigdiff/internal/diff"
	"tigdiff/internal/errors"
	"tigdiff/internal/object"
	"tigdiff/internal/safe"
	"tigdiff/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	// DirName is the metadata directory at the top of a working tree.
	DirName    = ".tig"
	IgnoreFile = ".tigignore"

	statCacheSize = 4096
)

// Repository stores blobs, flat trees, the index and HEAD for one working
// directory, and serves them to the diff engine as snapshots.
type Repository struct {
	Root string

	db     *badger.DB
	safe   *safe.Safe
	trees  *storage.BadgerStore
	index  *storage.BadgerStore
	refs   *storage.BadgerStore
	stats  *StatCache
	logger *zap.Logger

	mu sync.Mutex // serializes index updates
}

var _ diff.Repository = (*Repository)(nil)

// Init creates the metadata directories under root. It is safe to call on
// an existing repository.
func Init(root string) error {
	tigDir := filepath.Join(root, DirName)
	dirs := []string{
		filepath.Join(tigDir, "db"),
		filepath.Join(tigDir, "content"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	return nil
}

// FindRoot searches startDir and its parents for the ".tig" directory.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, DirName)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NotFound(fmt.Sprintf("not a tig repository (or any parent up to /): %s", startDir))
}

// Open opens the repository rooted at root. Init must have been called.
func Open(root string, logger *zap.Logger) (*Repository, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}
	tigDir := filepath.Join(absRoot, DirName)
	if _, err := os.Stat(tigDir); err != nil {
		return nil, errors.NotFound(fmt.Sprintf("not a tig repository: %s", absRoot))
	}

	db, err := openDB(filepath.Join(tigDir, "db"))
	if err != nil {
		return nil, err
	}

	r, err := newRepository(absRoot, db, filepath.Join(tigDir, "content"), logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// OpenInMemory works on the files under root but keeps every object in
// memory. Nothing is written under root.
func OpenInMemory(root string, logger *zap.Logger) (*Repository, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}

	db, err := badger.Open(memoryDBOptions())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	r, err := newRepository(absRoot, db, "", logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func newRepository(root string, db *badger.DB, contentDir string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	contentSafe, err := safe.New(db, safe.Options{
		Root:      contentDir,
		CacheSize: 1000,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing content safe: %w", err)
	}

	stats, err := NewStatCache(statCacheSize, logger)
	if err != nil {
		contentSafe.Close()
		return nil, err
	}

	return &Repository{
		Root:   root,
		db:     db,
		safe:   contentSafe,
		trees:  storage.NewBadgerStore(db, "tree"),
		index:  storage.NewBadgerStore(db, "index"),
		refs:   storage.NewBadgerStore(db, "ref"),
		stats:  stats,
		logger: logger.With(zap.String("root", root)),
	}, nil
}

// Close releases the database. Sources handed out earlier must not be
// loaded from afterwards.
func (r *Repository) Close() error {
	r.safe.Close()
	return r.db.Close()
}

// StatCache exposes the cache that speeds up working directory scans.
func (r *Repository) StatCache() *StatCache { return r.stats }

// Watch keeps the stat cache in sync with the working directory until ctx
// is done. Long running processes call it once after Open.
func (r *Repository) Watch(ctx context.Context) error {
	return r.stats.Watch(ctx, r.Root)
}

// WriteBlob stores content and returns its ID.
func (r *Repository) WriteBlob(data []byte) (object.ID, error) {
	return r.writeBlob("", data)
}

func (r *Repository) writeBlob(name string, data []byte) (object.ID, error) {
	id, err := r.safe.Store(name, data)
	if err != nil {
		return id, fmt.Errorf("writing blob: %w", err)
	}
	return id, nil
}

// ReadBlob returns the content stored under id.
func (r *Repository) ReadBlob(id object.ID) ([]byte, error) {
	data, err := r.safe.Get(id)
	if errors.Is(err, safe.ErrContentNotFound) {
		return nil, errors.NotFound(fmt.Sprintf("blob not found: %s", id.Short(12)))
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", id.Short(12), err)
	}
	return data, nil
}

// binaryHint turns the content safe's NUL sniff into a diff hint. Text
// content stays unknown so the engine still applies its own size checks.
func (r *Repository) binaryHint(id object.ID) object.BinaryHint {
	meta, err := r.safe.Meta(id)
	if err != nil || !meta.Binary {
		return object.BinaryUnknown
	}
	return object.BinaryYes
}

// cleanPath validates a repository-relative slash path.
func cleanPath(p string) (string, error) {
	if p == "" {
		return "", errors.ValidationError("path cannot be empty", nil)
	}
	if path.IsAbs(p) || strings.HasSuffix(p, "/") {
		return "", errors.ValidationError("path must be relative to the repository root", p)
	}
	clean := path.Clean(p)
	if clean != p || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", errors.ValidationError("path is not in canonical form", p)
	}
	if first, _, _ := strings.Cut(clean, "/"); first == DirName {
		return "", errors.ValidationError("path inside the metadata directory", p)
	}
	return clean, nil
}

// RelPath converts a user supplied path, absolute or relative to the
// current directory, to a slash path relative to the root. The root itself
// maps to "".
func (r *Repository) RelPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r.Root, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.ValidationError("path is outside the repository", p)
	}
	if rel == "." {
		return "", nil
	}
	return rel, nil
}
