package diff

import (
	"tigdiff/internal/errors"

	"go.uber.org/zap"
)

type walkState int

const (
	stateNoFile walkState = iota
	stateFile
	stateHunk
	stateLine
	stateDone
)

// walker is the traversal state machine behind Foreach and Iterator. It
// visits deltas in list order and computes each file's text diff at most
// once, into an arena reused for the next file.
type walker struct {
	list  *List
	state walkState

	file     int
	consumed int

	patch    filePatch
	computed bool
	err      error

	hunk int
	line int
}

func newWalker(l *List) *walker {
	return &walker{list: l, file: -1, hunk: -1, line: -1}
}

// nextFile moves to the next delta. The returned delta is a copy owned by
// the walker and stays valid until the following call.
func (w *walker) nextFile() (*Delta, error) {
	if w.state == stateDone {
		return nil, errors.ErrIterOver
	}
	if w.file >= 0 {
		w.consumed = w.file + 1
	}
	w.file++
	if w.file >= len(w.list.deltas) {
		w.state = stateDone
		w.consumed = len(w.list.deltas)
		w.patch.reset(Delta{})
		return nil, errors.ErrIterOver
	}

	w.patch.reset(w.list.deltas[w.file])
	w.computed = false
	w.err = nil
	w.hunk, w.line = -1, -1
	w.state = stateFile
	return &w.patch.delta, nil
}

// load runs the text differ for the current file unless it already ran.
// A failure is remembered and returned again for the same file.
func (w *walker) load() error {
	if w.state == stateNoFile || w.state == stateDone {
		return errors.ErrIterOver
	}
	if w.computed {
		return w.err
	}
	w.computed = true
	w.err = w.patch.compute(&w.list.opts)
	if w.err != nil {
		w.list.logger.Debug("text diff failed",
			zap.String("path", w.patch.delta.Path()),
			zap.Error(w.err),
		)
	}
	return w.err
}

func (w *walker) nextHunk() (*Hunk, error) {
	if err := w.load(); err != nil {
		return nil, err
	}
	if w.patch.delta.Binary || w.hunk+1 >= len(w.patch.hunks) {
		w.hunk = len(w.patch.hunks)
		w.line = -1
		return nil, errors.ErrIterOver
	}
	w.hunk++
	w.line = -1
	w.state = stateHunk
	return &w.patch.hunks[w.hunk], nil
}

func (w *walker) nextLine() (*Line, error) {
	if w.state != stateHunk && w.state != stateLine {
		return nil, errors.ErrIterOver
	}
	if w.hunk < 0 || w.hunk >= len(w.patch.hunks) {
		return nil, errors.ErrIterOver
	}
	lines := w.patch.hunkLines(w.hunk)
	if w.line+1 >= len(lines) {
		w.line = len(lines)
		return nil, errors.ErrIterOver
	}
	w.line++
	w.state = stateLine
	return &lines[w.line], nil
}

// current returns the hunk most recently returned by nextHunk.
func (w *walker) current() *Hunk {
	if w.hunk < 0 || w.hunk >= len(w.patch.hunks) {
		return nil
	}
	return &w.patch.hunks[w.hunk]
}

func (w *walker) numHunks() (int, error) {
	if err := w.load(); err != nil {
		return 0, err
	}
	return len(w.patch.hunks), nil
}

// numLines counts the lines of the current hunk, or of the first hunk when
// none has been returned yet.
func (w *walker) numLines() (int, error) {
	if err := w.load(); err != nil {
		return 0, err
	}
	h := max(w.hunk, 0)
	if h >= len(w.patch.hunks) {
		return 0, nil
	}
	return len(w.patch.hunkLines(h)), nil
}

// progress is the fraction of files fully consumed.
func (w *walker) progress() float64 {
	total := len(w.list.deltas)
	if total == 0 {
		if w.state == stateDone {
			return 1
		}
		return 0
	}
	return float64(w.consumed) / float64(total)
}
