package diff

import (
	"tigdiff/internal/errors"
)

// Iterator is a pull-based walk over a List. Each Next method returns
// errors.ErrIterOver when its scope is exhausted. An Iterator cannot be
// restarted and must not be used from more than one goroutine; several
// iterators may walk the same List at once.
type Iterator struct {
	w *walker
}

// NewIterator starts a walk before the first delta of l.
func NewIterator(l *List) *Iterator {
	return &Iterator{w: newWalker(l)}
}

// Close drops the cursor and its cached text diff.
func (it *Iterator) Close() {
	if it == nil {
		return
	}
	it.w = nil
}

// Progress is the fraction of files fully consumed. It reaches 1 once
// NextFile has reported ErrIterOver.
func (it *Iterator) Progress() float64 {
	if it.w == nil {
		return 0
	}
	return it.w.progress()
}

// NextFile advances to the next delta. The returned delta is valid until the
// following NextFile call.
func (it *Iterator) NextFile() (*Delta, error) {
	if it.w == nil {
		return nil, errors.ErrIterOver
	}
	return it.w.nextFile()
}

// NextHunk advances to the next hunk of the current file. The first call for
// a file runs the text differ; a content failure is returned for every
// further hunk request on that file, and NextFile moves past it.
func (it *Iterator) NextHunk() (*Hunk, error) {
	if it.w == nil {
		return nil, errors.ErrIterOver
	}
	return it.w.nextHunk()
}

// NextLine advances to the next line of the current hunk.
func (it *Iterator) NextLine() (*Line, error) {
	if it.w == nil {
		return nil, errors.ErrIterOver
	}
	return it.w.nextLine()
}

// NumHunksInFile computes the current file's text diff if needed and
// returns its hunk count. Binary files have none.
func (it *Iterator) NumHunksInFile() (int, error) {
	if it.w == nil {
		return 0, errors.ErrIterOver
	}
	return it.w.numHunks()
}

// NumLinesInHunk returns the line count of the current hunk, or of the first
// hunk if NextHunk has not been called for this file yet.
func (it *Iterator) NumLinesInHunk() (int, error) {
	if it.w == nil {
		return 0, errors.ErrIterOver
	}
	return it.w.numLines()
}
