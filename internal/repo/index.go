package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"tigdiff/internal/errors"
	"tigdiff/internal/object"

	"go.uber.org/zap"
)

const headRef = "HEAD"

// indexRecord is one staged path. Keys are the paths themselves, so the
// store lists them in path order.
type indexRecord struct {
	object.Entry
}

func (e indexRecord) GetID() string { return e.Path }

type ref struct {
	Name   string    `json:"name"`
	Target object.ID `json:"target"`
}

func (r ref) GetID() string { return r.Name }

// Stage records data as the staged content of p.
func (r *Repository) Stage(p string, mode object.Mode, data []byte) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}

	id, err := r.writeBlob(p, data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Put(indexRecord{object.Entry{
		Path:   p,
		Mode:   mode,
		Size:   int64(len(data)),
		ID:     id,
		Binary: r.binaryHint(id),
	}})
}

// Remove drops p from the index.
func (r *Repository) Remove(p string) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Delete(p)
}

// Entries returns the index sorted by path.
func (r *Repository) Entries() ([]object.Entry, error) {
	var recs []indexRecord
	if err := r.index.List(&recs); err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	entries := make([]object.Entry, len(recs))
	for i, rec := range recs {
		entries[i] = rec.Entry
	}
	return entries, nil
}

// IndexSource returns a snapshot of the index as it is now.
func (r *Repository) IndexSource() (object.Source, error) {
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}
	return &storedSource{r: r, entries: entries}, nil
}

// WriteTreeFromIndex stores the index as a tree.
func (r *Repository) WriteTreeFromIndex() (object.ID, error) {
	entries, err := r.Entries()
	if err != nil {
		return object.ZeroID, err
	}
	return r.WriteTree(entries)
}

// SetHead points HEAD at a tree.
func (r *Repository) SetHead(id object.ID) error {
	return r.refs.Put(ref{Name: headRef, Target: id})
}

// Head returns the tree HEAD points at, or the zero ID before the first
// SetHead.
func (r *Repository) Head() (object.ID, error) {
	var h ref
	err := r.refs.Get(headRef, &h)
	if errors.Is(err, errors.NotFound("")) {
		return object.ZeroID, nil
	}
	if err != nil {
		return object.ZeroID, fmt.Errorf("reading HEAD: %w", err)
	}
	return h.Target, nil
}

// AddPaths stages files from the working directory. Directories are added
// recursively, skipping ignored files that are not already tracked. Tracked
// paths that no longer exist on disk are removed from the index.
func (r *Repository) AddPaths(paths ...string) error {
	ig, err := loadIgnore(r.Root)
	if err != nil {
		return err
	}
	tracked, err := r.Entries()
	if err != nil {
		return err
	}
	inIndex := make(map[string]bool, len(tracked))
	trackedDirs := make(map[string]bool)
	for _, e := range tracked {
		inIndex[e.Path] = true
		for dir := path.Dir(e.Path); dir != "."; dir = path.Dir(dir) {
			trackedDirs[dir] = true
		}
	}

	for _, p := range paths {
		rel, err := r.RelPath(p)
		if err != nil {
			return err
		}

		abs := filepath.Join(r.Root, filepath.FromSlash(rel))
		info, err := os.Lstat(abs)
		switch {
		case os.IsNotExist(err):
			if err := r.removeMissing(rel, tracked, nil); err != nil {
				return err
			}
			continue
		case err != nil:
			return fmt.Errorf("accessing path %s: %w", p, err)
		}

		if !info.IsDir() {
			if err := r.stageFile(rel, info); err != nil {
				return err
			}
			continue
		}

		seen := make(map[string]bool)
		err = filepath.WalkDir(abs, func(fp string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			frel, err := r.RelPath(fp)
			if err != nil {
				return err
			}
			if d.IsDir() {
				if frel != "" && (skipDir(d.Name()) || (!trackedDirs[frel] && ig.Ignored(frel, true))) {
					return filepath.SkipDir
				}
				return nil
			}
			if !inIndex[frel] && ig.Ignored(frel, false) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}
			seen[frel] = true
			return r.stageFile(frel, info)
		})
		if err != nil {
			return fmt.Errorf("walking directory %s: %w", p, err)
		}

		if err := r.removeMissing(rel, tracked, seen); err != nil {
			return err
		}
	}
	return nil
}

// stageFile reads a working directory file and stages it. Special files are
// skipped.
func (r *Repository) stageFile(rel string, info fs.FileInfo) error {
	mode, ok := modeOf(info)
	if !ok {
		r.logger.Debug("skipping special file", zap.String("path", rel))
		return nil
	}
	data, err := readWorkdirFile(filepath.Join(r.Root, filepath.FromSlash(rel)), mode)
	if err != nil {
		return fmt.Errorf("reading %s: %w", rel, err)
	}
	return r.Stage(rel, mode, data)
}

// removeMissing unstages tracked paths at or below dir that were not seen
// on disk.
func (r *Repository) removeMissing(dir string, tracked []object.Entry, seen map[string]bool) error {
	for _, e := range tracked {
		if seen[e.Path] {
			continue
		}
		if dir != "" && e.Path != dir && !strings.HasPrefix(e.Path, dir+"/") {
			continue
		}
		if _, err := os.Lstat(filepath.Join(r.Root, filepath.FromSlash(e.Path))); err == nil {
			continue
		}
		if err := r.Remove(e.Path); err != nil && !errors.Is(err, errors.NotFound("")) {
			return err
		}
		r.logger.Debug("unstaged missing path", zap.String("path", e.Path))
	}
	return nil
}

// RemovePaths unstages each path, and everything below it for a directory,
// without touching the working directory. A path matching nothing in the
// index is a NotFound error.
func (r *Repository) RemovePaths(paths ...string) error {
	tracked, err := r.Entries()
	if err != nil {
		return err
	}
	for _, p := range paths {
		rel, err := r.RelPath(p)
		if err != nil {
			return err
		}
		matched := false
		for _, e := range tracked {
			if rel != "" && e.Path != rel && !strings.HasPrefix(e.Path, rel+"/") {
				continue
			}
			if err := r.Remove(e.Path); err != nil && !errors.Is(err, errors.NotFound("")) {
				return err
			}
			matched = true
		}
		if !matched {
			return errors.NotFound(fmt.Sprintf("pathspec %q did not match any staged file", p))
		}
	}
	return nil
}

// ResetIndex replaces the index with the entries of tree. The working
// directory is left alone.
func (r *Repository) ResetIndex(tree object.ID) error {
	entries, err := r.ReadTree(tree)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.index.DeleteAll(); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}
	for _, e := range entries {
		if err := r.index.Put(indexRecord{e}); err != nil {
			return fmt.Errorf("restoring %s: %w", e.Path, err)
		}
	}
	r.logger.Debug("index reset", zap.String("tree", tree.Short(12)), zap.Int("entries", len(entries)))
	return nil
}
