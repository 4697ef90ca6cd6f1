package diff

import (
	"tigdiff/internal/errors"
)

// Foreach walks every delta in order. The file callback receives each delta
// with the fraction of files already visited; when a hunk or line callback
// is given, the text diff is computed before the file callback so
// Delta.Binary is final. Binary deltas never reach the hunk or line
// callbacks.
//
// A callback error stops the walk at once and is returned wrapped so that it
// matches errors.ErrUser. Content failures are returned as they are.
func (l *List) Foreach(file FileFunc, hunk HunkFunc, line LineFunc) error {
	w := newWalker(l)
	text := hunk != nil || line != nil

	for {
		d, err := w.nextFile()
		if errors.Is(err, errors.ErrIterOver) {
			return nil
		}
		if err != nil {
			return err
		}

		if text {
			if err := w.load(); err != nil {
				return err
			}
		}
		if file != nil {
			if err := file(d, w.progress()); err != nil {
				return errors.UserAbort(err)
			}
		}
		if !text || d.Binary {
			continue
		}

		if err := w.walkHunks(d, hunk, line); err != nil {
			return err
		}
	}
}

func (w *walker) walkHunks(d *Delta, hunk HunkFunc, line LineFunc) error {
	for {
		h, err := w.nextHunk()
		if errors.Is(err, errors.ErrIterOver) {
			return nil
		}
		if err != nil {
			return err
		}
		if hunk != nil {
			if err := hunk(d, h); err != nil {
				return errors.UserAbort(err)
			}
		}
		if line == nil {
			continue
		}

		for {
			ln, err := w.nextLine()
			if errors.Is(err, errors.ErrIterOver) {
				break
			}
			if err != nil {
				return err
			}
			if err := line(d, h, ln); err != nil {
				return errors.UserAbort(err)
			}
		}
	}
}
