package repo

import (
	"fmt"

	"tigdiff/internal/object"

	"go.uber.org/zap"
)

// Damage is a blob reference whose content is missing or does not hash to
// its ID.
type Damage struct {
	ID   object.ID
	Path string
	Err  error
}

// Check rereads every blob referenced by a stored tree or by the index and
// verifies it against its ID. Each blob is checked once, under the first
// path that refers to it.
func (r *Repository) Check() ([]Damage, error) {
	treeIDs, err := r.trees.IDs()
	if err != nil {
		return nil, fmt.Errorf("listing trees: %w", err)
	}

	var damaged []Damage
	seen := make(map[object.ID]bool)
	verify := func(entries []object.Entry) {
		for _, e := range entries {
			if e.Mode.IsTree() || e.Mode.IsSubmodule() || seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			if err := r.safe.Verify(e.ID); err != nil {
				r.logger.Warn("damaged blob",
					zap.String("path", e.Path),
					zap.String("id", e.ID.String()),
					zap.Error(err))
				damaged = append(damaged, Damage{ID: e.ID, Path: e.Path, Err: err})
			}
		}
	}

	for _, s := range treeIDs {
		id, err := object.ParseID(s)
		if err != nil {
			return nil, fmt.Errorf("bad tree key %q: %w", s, err)
		}
		entries, err := r.ReadTree(id)
		if err != nil {
			return nil, fmt.Errorf("reading tree %s: %w", id.Short(12), err)
		}
		verify(entries)
	}

	index, err := r.Entries()
	if err != nil {
		return nil, err
	}
	verify(index)

	r.logger.Debug("checked objects", zap.Int("trees", len(treeIDs)), zap.Int("blobs", len(seen)))
	return damaged, nil
}
