package diff

import (
	"fmt"

	"tigdiff/internal/errors"
	"tigdiff/internal/object"

	"go.uber.org/zap"
)

// Build merge-joins the entries of two snapshots into a List. Both sources
// must yield entries sorted by path.
func Build(oldSrc, newSrc object.Source, opts *Options) (*List, error) {
	o, err := normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	oldEntries, err := oldSrc.Entries()
	if err != nil {
		return nil, fmt.Errorf("reading old snapshot: %w", err)
	}
	newEntries, err := newSrc.Entries()
	if err != nil {
		return nil, fmt.Errorf("reading new snapshot: %w", err)
	}

	return buildList(oldEntries, newEntries, oldSrc, newSrc, o)
}

func buildList(oldEntries, newEntries []object.Entry, oldSrc, newSrc object.Source, o Options) (*List, error) {
	if err := checkSorted(oldEntries); err != nil {
		return nil, err
	}
	if err := checkSorted(newEntries); err != nil {
		return nil, err
	}

	deltas := make([]Delta, 0, max(len(oldEntries), len(newEntries)))
	i, j := 0, 0
	for i < len(oldEntries) || j < len(newEntries) {
		var d Delta
		switch {
		case j >= len(newEntries) || (i < len(oldEntries) && oldEntries[i].Path < newEntries[j].Path):
			d = deletedDelta(oldEntries[i], oldSrc)
			i++
		case i >= len(oldEntries) || newEntries[j].Path < oldEntries[i].Path:
			d = addedDelta(newEntries[j], newSrc)
			j++
		default:
			d = pairedDelta(oldEntries[i], newEntries[j], oldSrc, newSrc)
			i++
			j++
		}

		if !wanted(&d, o.Flags) {
			continue
		}
		if o.Flags.Has(Reverse) {
			d.reverse()
		}
		deltas = append(deltas, d)
	}

	l := newList(o, deltas)
	l.logger.Debug("diff list built",
		zap.Int("old_entries", len(oldEntries)),
		zap.Int("new_entries", len(newEntries)),
		zap.Int("deltas", len(deltas)),
	)
	return l, nil
}

func checkSorted(entries []object.Entry) error {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Path >= entries[i].Path {
			return errors.ValidationError("snapshot entries are not strictly sorted by path",
				[]string{entries[i-1].Path, entries[i].Path})
		}
	}
	return nil
}

func fileFromEntry(e object.Entry) File {
	f := File{
		ID:   e.ID,
		Path: e.Path,
		Size: e.Size,
		Mode: e.Mode,
	}
	if !e.ID.IsZero() {
		f.Flags |= FileValidID
	}
	switch e.Binary {
	case object.BinaryYes:
		f.Flags |= FileBinary
	case object.BinaryNo:
		f.Flags |= FileNotBinary
	}
	if e.Mode.IsTree() || e.Mode.IsSubmodule() {
		f.Flags |= FileNoData
	}
	return f
}

// absentFile is the missing side of an added or deleted path. It keeps the
// path so both sides name the file.
func absentFile(path string) File {
	return File{Path: path}
}

func deletedDelta(e object.Entry, src object.Source) Delta {
	return Delta{
		Old:    fileFromEntry(e),
		New:    absentFile(e.Path),
		Status: Deleted,
		oldSrc: src,
	}
}

func addedDelta(e object.Entry, src object.Source) Delta {
	status := Added
	switch e.Kind {
	case object.KindUntracked:
		status = Untracked
	case object.KindIgnored:
		status = Ignored
	}
	return Delta{
		Old:    absentFile(e.Path),
		New:    fileFromEntry(e),
		Status: status,
		newSrc: src,
	}
}

func pairedDelta(oldEntry, newEntry object.Entry, oldSrc, newSrc object.Source) Delta {
	status := Modified
	if oldEntry.ID == newEntry.ID && oldEntry.Mode == newEntry.Mode {
		status = Unmodified
	}
	return Delta{
		Old:    fileFromEntry(oldEntry),
		New:    fileFromEntry(newEntry),
		Status: status,
		oldSrc: oldSrc,
		newSrc: newSrc,
	}
}

// wanted applies the include and submodule flags.
func wanted(d *Delta, flags Flag) bool {
	if flags.Has(IgnoreSubmodules) && (d.Old.Mode.IsSubmodule() || d.New.Mode.IsSubmodule()) {
		return false
	}
	switch d.Status {
	case Unmodified:
		return flags.Has(IncludeUnmodified)
	case Untracked:
		return flags.Has(IncludeUntracked)
	case Ignored:
		return flags.Has(IncludeIgnored)
	}
	return true
}

func (d *Delta) reverse() {
	d.Old, d.New = d.New, d.Old
	d.oldSrc, d.newSrc = d.newSrc, d.oldSrc
	switch d.Status {
	case Added:
		d.Status = Deleted
	case Deleted:
		d.Status = Added
	}
}
