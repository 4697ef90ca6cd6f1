package repo

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"tigdiff/internal/object"

	"go.uber.org/zap"
)

// skipDir reports directories a scan never enters or reports.
func skipDir(name string) bool {
	return name == DirName || name == ".git"
}

// modeOf maps file info to a tree mode. ok is false for sockets, devices
// and other special files.
func modeOf(info fs.FileInfo) (mode object.Mode, ok bool) {
	m := info.Mode()
	switch {
	case m&fs.ModeSymlink != 0:
		return object.ModeSymlink, true
	case m.IsDir():
		return object.ModeTree, true
	case !m.IsRegular():
		return object.ModeUnreadable, false
	case m.Perm()&0o111 != 0:
		return object.ModeExecutable, true
	}
	return object.ModeFile, true
}

// readWorkdirFile returns the content a path would be stored with: the link
// target for symlinks, the file bytes otherwise.
func readWorkdirFile(abs string, mode object.Mode) ([]byte, error) {
	if mode.IsSymlink() {
		target, err := os.Readlink(abs)
		if err != nil {
			return nil, err
		}
		return []byte(filepath.ToSlash(target)), nil
	}
	return os.ReadFile(abs)
}

// workdirSource is a snapshot of the working directory taken when it was
// created. Load reads the files again, so content may have moved on.
type workdirSource struct {
	root    string
	entries []object.Entry
}

func (s *workdirSource) Entries() ([]object.Entry, error) {
	out := make([]object.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *workdirSource) Load(e object.Entry) ([]byte, error) {
	if e.Mode.IsTree() {
		return nil, nil
	}
	return readWorkdirFile(filepath.Join(s.root, filepath.FromSlash(e.Path)), e.Mode)
}

// scanner walks the working directory and classifies what it finds against
// the index.
type scanner struct {
	r       *Repository
	opts    object.WorkdirOptions
	ignore  *ignoreRules
	tracked map[string]bool
	dirs    map[string]bool // directories holding at least one tracked path
	entries []object.Entry
}

// WorkdirSource scans the working directory. Tracked files are hashed,
// using the stat cache to skip files that did not change since the last
// scan.
func (r *Repository) WorkdirSource(opts object.WorkdirOptions) (object.Source, error) {
	ig, err := loadIgnore(r.Root)
	if err != nil {
		return nil, err
	}
	index, err := r.Entries()
	if err != nil {
		return nil, err
	}

	sc := &scanner{
		r:       r,
		opts:    opts,
		ignore:  ig,
		tracked: make(map[string]bool, len(index)),
		dirs:    make(map[string]bool),
	}
	for _, e := range index {
		sc.tracked[e.Path] = true
		for dir := path.Dir(e.Path); dir != "."; dir = path.Dir(dir) {
			sc.dirs[dir] = true
		}
	}

	if err := sc.walk(r.Root, "", false); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", r.Root, err)
	}

	sort.Slice(sc.entries, func(i, j int) bool { return sc.entries[i].Path < sc.entries[j].Path })
	r.logger.Debug("working directory scanned",
		zap.Int("tracked", len(index)),
		zap.Int("entries", len(sc.entries)),
		zap.Int("stat_cache", r.stats.Len()),
	)
	return &workdirSource{root: r.Root, entries: sc.entries}, nil
}

// walk visits one directory. ignored is set when an ancestor matched an
// ignore rule.
func (sc *scanner) walk(abs, rel string, ignored bool) error {
	dirents, err := os.ReadDir(abs)
	if err != nil {
		return err
	}

	for _, d := range dirents {
		name := d.Name()
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}
		childAbs := filepath.Join(abs, name)

		info, err := d.Info()
		if os.IsNotExist(err) {
			continue // removed while scanning
		}
		if err != nil {
			return err
		}

		if info.IsDir() {
			if skipDir(name) {
				continue
			}
			if err := sc.dir(childAbs, childRel, ignored || sc.ignore.Match(childRel, true)); err != nil {
				return err
			}
			continue
		}

		mode, ok := modeOf(info)
		if !ok {
			continue
		}
		if err := sc.file(childAbs, childRel, mode, info, ignored); err != nil {
			return err
		}
	}
	return nil
}

func (sc *scanner) dir(abs, rel string, ignored bool) error {
	if sc.dirs[rel] {
		return sc.walk(abs, rel, ignored)
	}

	if ignored {
		if !sc.opts.IncludeIgnored {
			return nil
		}
		if sc.opts.RecurseUntrackedDirs {
			return sc.walk(abs, rel, true)
		}
		sc.collapse(rel, object.KindIgnored)
		return nil
	}

	switch {
	case sc.opts.RecurseUntrackedDirs:
		return sc.walk(abs, rel, false)
	case sc.opts.IncludeUntracked:
		found, err := sc.hasUnignoredFile(abs, rel)
		if err != nil {
			return err
		}
		if found {
			sc.collapse(rel, object.KindUntracked)
			return nil
		}
		if sc.opts.IncludeIgnored {
			return sc.walk(abs, rel, false)
		}
	case sc.opts.IncludeIgnored:
		return sc.walk(abs, rel, false)
	}
	return nil
}

// collapse reports a whole untracked or ignored directory as one entry.
func (sc *scanner) collapse(rel string, kind object.Kind) {
	sc.entries = append(sc.entries, object.Entry{
		Path: rel + "/",
		Mode: object.ModeTree,
		Kind: kind,
	})
}

// hasUnignoredFile reports whether an untracked directory contains anything
// a status listing should show.
func (sc *scanner) hasUnignoredFile(abs, rel string) (bool, error) {
	dirents, err := os.ReadDir(abs)
	if err != nil {
		return false, err
	}
	for _, d := range dirents {
		childRel := rel + "/" + d.Name()
		if d.IsDir() {
			if skipDir(d.Name()) || sc.ignore.Match(childRel, true) {
				continue
			}
			found, err := sc.hasUnignoredFile(filepath.Join(abs, d.Name()), childRel)
			if err != nil || found {
				return found, err
			}
			continue
		}
		if !sc.ignore.Match(childRel, false) {
			return true, nil
		}
	}
	return false, nil
}

func (sc *scanner) file(abs, rel string, mode object.Mode, info fs.FileInfo, ignored bool) error {
	kind := object.KindTracked
	switch {
	case sc.tracked[rel]:
	case ignored || sc.ignore.Match(rel, false):
		if !sc.opts.IncludeIgnored {
			return nil
		}
		kind = object.KindIgnored
	default:
		if !sc.opts.IncludeUntracked {
			return nil
		}
		kind = object.KindUntracked
	}

	id, size, err := sc.r.hashFile(abs, rel, mode, info)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("hashing %s: %w", rel, err)
	}

	sc.entries = append(sc.entries, object.Entry{
		Path: rel,
		Mode: mode,
		Size: size,
		ID:   id,
		Kind: kind,
	})
	return nil
}

// hashFile returns the ID and size of a working directory file, consulting
// the stat cache first.
func (r *Repository) hashFile(abs, rel string, mode object.Mode, info fs.FileInfo) (object.ID, int64, error) {
	if id, ok := r.stats.Lookup(rel, info); ok {
		return id, info.Size(), nil
	}

	data, err := readWorkdirFile(abs, mode)
	if err != nil {
		return object.ZeroID, 0, err
	}
	id := object.Hash(data)
	r.stats.Store(rel, info, id)
	return id, int64(len(data)), nil
}

