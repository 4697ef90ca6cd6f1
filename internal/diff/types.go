// Package diff builds lists of file deltas between two snapshots and walks
// them at file, hunk and line granularity.
//
// A List is built once (Build, TreeToTree, WorkdirToIndex, ...) and is
// read-only afterwards except through Merge. Text diffs are computed lazily,
// one file at a time, either by Foreach or by an Iterator.
package diff

import (
	"tigdiff/internal/object"
)

// Status describes what happened to a path between the two snapshots.
type Status int

const (
	Unmodified Status = iota
	Added
	Deleted
	Modified
	Renamed
	Copied
	Ignored
	Untracked
)

// StatusAll selects every status in EntryCount.
const StatusAll Status = -1

var statusNames = [...]string{
	Unmodified: "unmodified",
	Added:      "added",
	Deleted:    "deleted",
	Modified:   "modified",
	Renamed:    "renamed",
	Copied:     "copied",
	Ignored:    "ignored",
	Untracked:  "untracked",
}

var statusChars = [...]byte{
	Unmodified: ' ',
	Added:      'A',
	Deleted:    'D',
	Modified:   'M',
	Renamed:    'R',
	Copied:     'C',
	Ignored:    'I',
	Untracked:  '?',
}

// Statuses lists every status value in declaration order.
var Statuses = []Status{Unmodified, Added, Deleted, Modified, Renamed, Copied, Ignored, Untracked}

func (s Status) valid() bool { return s >= Unmodified && s <= Untracked }

func (s Status) String() string {
	if !s.valid() {
		return "unknown"
	}
	return statusNames[s]
}

// Char is the single letter used by compact output.
func (s Status) Char() byte {
	if !s.valid() {
		return ' '
	}
	return statusChars[s]
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(name string) (Status, bool) {
	for s, n := range statusNames {
		if n == name {
			return Status(s), true
		}
	}
	return 0, false
}

// FileFlag records what is known about one side of a delta.
type FileFlag uint32

const (
	// FileValidID means the ID was computed from the content.
	FileValidID FileFlag = 1 << iota
	FileBinary
	FileNotBinary
	// FileNoData means the side has no loadable content (trees, submodules).
	FileNoData
)

func (f FileFlag) Has(flag FileFlag) bool { return f&flag == flag }

// File is one side of a delta.
type File struct {
	ID    object.ID
	Path  string
	Size  int64
	Mode  object.Mode
	Flags FileFlag
}

// Exists reports whether the side is present. Absent sides have a zero ID
// and a zero mode.
func (f File) Exists() bool {
	return !f.ID.IsZero() || f.Mode != 0
}

func (f File) entry() object.Entry {
	return object.Entry{Path: f.Path, Mode: f.Mode, Size: f.Size, ID: f.ID}
}

// Delta is the change record for one path.
type Delta struct {
	Old        File
	New        File
	Status     Status
	Similarity int
	// Binary is decided when content is examined, so it is only set on the
	// copies handed to Foreach, iterator and print callbacks. Deltas read
	// from a List leave it false; the builder's hint is in the FileBinary
	// and FileNotBinary flags of Old and New.
	Binary     bool

	oldSrc object.Source
	newSrc object.Source
}

// key is the ordering key of a delta within a list.
func (d *Delta) key() string {
	if d.Old.Exists() {
		return d.Old.Path
	}
	return d.New.Path
}

// Path returns the path the delta is ordered by.
func (d *Delta) Path() string { return d.key() }

// Range locates a hunk in both files. Starts are 1-based; a start for an
// empty side names the line before the hunk.
type Range struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
}

// Hunk is a contiguous group of changed lines with surrounding context.
type Hunk struct {
	Range
	Header string
}

// Origin classifies a line passed to line callbacks.
type Origin byte

const (
	OriginContext  Origin = ' '
	OriginAddition Origin = '+'
	OriginDeletion Origin = '-'
	// OriginAddEOFNL is an added last line that has no trailing newline
	// while the old side's last line had one.
	OriginAddEOFNL Origin = '>'
	// OriginDelEOFNL is a deleted last line that had no trailing newline
	// while the new side's last line has one.
	OriginDelEOFNL Origin = '<'

	// Only emitted by the formatters.
	OriginFileHeader Origin = 'F'
	OriginHunkHeader Origin = 'H'
	OriginBinary     Origin = 'B'
)

// Prefix is the character a unified patch writes before a line of this origin.
func (o Origin) Prefix() byte {
	switch o {
	case OriginAddition, OriginAddEOFNL:
		return '+'
	case OriginDeletion, OriginDelEOFNL:
		return '-'
	case OriginContext:
		return ' '
	}
	return 0
}

// Line is one line of a text diff. Content holds the original bytes,
// including the trailing newline when the file has one.
type Line struct {
	Origin    Origin
	Content   []byte
	OldLineno int
	NewLineno int
}

// FileFunc is called once per delta with the fraction of files already
// visited. Returning an error stops the traversal.
type FileFunc func(d *Delta, progress float64) error

// HunkFunc is called once per hunk of a text diff.
type HunkFunc func(d *Delta, h *Hunk) error

// LineFunc is called once per line. For formatter output h is nil on file
// headers and binary markers. The pointers are only valid during the call.
type LineFunc func(d *Delta, h *Hunk, l *Line) error
