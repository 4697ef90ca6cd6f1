package repo

import (
	"bytes"
	"fmt"
	"sort"

	"tigdiff/internal/errors"
	"tigdiff/internal/object"
)

// treeRecord is a flat tree: every file of a snapshot, sorted by path.
type treeRecord struct {
	ID      object.ID      `json:"id"`
	Entries []object.Entry `json:"entries"`
}

func (t treeRecord) GetID() string { return t.ID.String() }

// WriteTree stores entries as a tree and returns its ID. The ID depends only
// on the paths, modes and blob IDs, not on the order entries are given in.
func (r *Repository) WriteTree(entries []object.Entry) (object.ID, error) {
	sorted := make([]object.Entry, len(entries))
	for i, e := range entries {
		p, err := cleanPath(e.Path)
		if err != nil {
			return object.ZeroID, err
		}
		e.Path = p
		e.Kind = object.KindTracked
		sorted[i] = e
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Path == sorted[i].Path {
			return object.ZeroID, errors.ValidationError("duplicate path in tree", sorted[i].Path)
		}
	}

	rec := treeRecord{ID: treeID(sorted), Entries: sorted}
	exists, err := r.trees.Has(rec.ID.String())
	if err != nil {
		return object.ZeroID, fmt.Errorf("looking up tree: %w", err)
	}
	if exists {
		return rec.ID, nil
	}
	if err := r.trees.Create(rec); err != nil {
		// Lost a race with a writer storing the same tree.
		if exists, _ := r.trees.Has(rec.ID.String()); exists {
			return rec.ID, nil
		}
		return object.ZeroID, fmt.Errorf("writing tree: %w", err)
	}
	return rec.ID, nil
}

// treeID hashes the canonical encoding "<mode> <path>\0<raw id>" of every
// entry in path order.
func treeID(entries []object.Entry) object.ID {
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%o %s\x00", uint32(e.Mode), e.Path)
		buf.Write(e.ID[:])
	}
	return object.Hash(buf.Bytes())
}

// ReadTree returns the entries of a tree sorted by path. The zero ID is the
// empty tree.
func (r *Repository) ReadTree(id object.ID) ([]object.Entry, error) {
	if id.IsZero() {
		return nil, nil
	}
	var rec treeRecord
	if err := r.trees.Get(id.String(), &rec); err != nil {
		return nil, err
	}
	return rec.Entries, nil
}

// storedSource serves entries whose content lives in the content safe.
type storedSource struct {
	r       *Repository
	entries []object.Entry
}

func (s *storedSource) Entries() ([]object.Entry, error) {
	out := make([]object.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *storedSource) Load(e object.Entry) ([]byte, error) {
	return s.r.ReadBlob(e.ID)
}

// TreeSource returns the snapshot of a stored tree.
func (r *Repository) TreeSource(id object.ID) (object.Source, error) {
	entries, err := r.ReadTree(id)
	if err != nil {
		return nil, err
	}
	return &storedSource{r: r, entries: entries}, nil
}
