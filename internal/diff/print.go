package diff

import (
	"fmt"
	"io"
	"strings"

	"tigdiff/internal/errors"
	"tigdiff/internal/object"
)

const (
	devNull        = "/dev/null"
	abbrevLen      = 7
	noNewlineAtEOF = "\\ No newline at end of file\n"
)

// PrintCompact emits one OriginFileHeader line per changed delta in the
// form of `git diff --name-status`, with a type suffix on each path.
func (l *List) PrintCompact(fn LineFunc) error {
	w := newWalker(l)
	for {
		d, err := w.nextFile()
		if errors.Is(err, errors.ErrIterOver) {
			return nil
		}
		if err != nil {
			return err
		}
		if d.Status == Unmodified {
			continue
		}

		ln := Line{Origin: OriginFileHeader, Content: []byte(compactLine(d))}
		if err := fn(d, nil, &ln); err != nil {
			return errors.UserAbort(err)
		}
	}
}

func compactLine(d *Delta) string {
	oldPath, newPath := d.Old.Path, d.New.Path
	oldMode, newMode := d.Old.Mode, d.New.Mode
	if !d.Old.Exists() {
		oldMode = newMode
	}
	if !d.New.Exists() {
		newMode = oldMode
	}

	var b strings.Builder
	b.WriteByte(d.Status.Char())
	b.WriteByte('\t')
	b.WriteString(oldPath)
	b.WriteString(modeSuffix(oldPath, oldMode))
	switch {
	case newPath != "" && newPath != oldPath:
		b.WriteString(" -> ")
		b.WriteString(newPath)
		b.WriteString(modeSuffix(newPath, newMode))
	case oldMode != newMode:
		fmt.Fprintf(&b, " (%s -> %s)", oldMode, newMode)
	}
	b.WriteByte('\n')
	return b.String()
}

func modeSuffix(p string, m object.Mode) string {
	switch {
	case strings.HasSuffix(p, "/"):
		return ""
	case m.IsTree():
		return "/"
	case m.IsSymlink():
		return "@"
	case m.IsExecutable():
		return "*"
	}
	return ""
}

// PrintPatch emits a unified patch: a file header per delta, then a hunk
// header and the lines of every hunk, or a binary marker. Unmodified and
// ignored deltas are skipped, as are untracked directories, which have no
// content to show.
func (l *List) PrintPatch(fn LineFunc) error {
	w := newWalker(l)
	for {
		d, err := w.nextFile()
		if errors.Is(err, errors.ErrIterOver) {
			return nil
		}
		if err != nil {
			return err
		}
		if d.Status == Unmodified || d.Status == Ignored {
			continue
		}
		if d.Status == Untracked && d.New.Flags.Has(FileNoData) {
			continue
		}
		if err := w.load(); err != nil {
			return err
		}

		header := Line{Origin: OriginFileHeader, Content: []byte(patchHeader(d, &l.opts, len(w.patch.hunks) > 0))}
		if err := fn(d, nil, &header); err != nil {
			return errors.UserAbort(err)
		}

		if d.Binary {
			marker := Line{Origin: OriginBinary, Content: []byte(binaryMarker(d, &l.opts))}
			if err := fn(d, nil, &marker); err != nil {
				return errors.UserAbort(err)
			}
			continue
		}

		hunkHeader := func(d *Delta, h *Hunk) error {
			ln := Line{Origin: OriginHunkHeader, Content: []byte(h.Header)}
			return fn(d, h, &ln)
		}
		if err := w.walkHunks(d, hunkHeader, fn); err != nil {
			return err
		}
	}
}

func sidePaths(d *Delta, o *Options) (string, string) {
	oldPath := devNull
	if d.Old.Exists() {
		oldPath = o.OldPrefix + "/" + d.Old.Path
	}
	newPath := devNull
	if d.New.Exists() {
		newPath = o.NewPrefix + "/" + d.New.Path
	}
	return oldPath, newPath
}

func patchHeader(d *Delta, o *Options, withPaths bool) string {
	oldName, newName := d.Old.Path, d.New.Path
	if oldName == "" {
		oldName = newName
	}
	if newName == "" {
		newName = oldName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "diff --git %s/%s %s/%s\n", o.OldPrefix, oldName, o.NewPrefix, newName)
	switch {
	case !d.Old.Exists():
		fmt.Fprintf(&b, "new file mode %s\n", d.New.Mode)
	case !d.New.Exists():
		fmt.Fprintf(&b, "deleted file mode %s\n", d.Old.Mode)
	case d.Old.Mode != d.New.Mode:
		fmt.Fprintf(&b, "old mode %s\nnew mode %s\n", d.Old.Mode, d.New.Mode)
	}

	if d.Old.ID != d.New.ID {
		fmt.Fprintf(&b, "index %s..%s", d.Old.ID.Short(abbrevLen), d.New.ID.Short(abbrevLen))
		if d.Old.Mode == d.New.Mode {
			fmt.Fprintf(&b, " %s", d.Old.Mode)
		}
		b.WriteByte('\n')
	}

	if withPaths && !d.Binary {
		oldPath, newPath := sidePaths(d, o)
		fmt.Fprintf(&b, "--- %s\n+++ %s\n", oldPath, newPath)
	}
	return b.String()
}

func binaryMarker(d *Delta, o *Options) string {
	oldPath, newPath := sidePaths(d, o)
	return fmt.Sprintf("Binary files %s and %s differ\n", oldPath, newPath)
}

// WritePatch renders PrintPatch output to out.
func (l *List) WritePatch(out io.Writer) error {
	var werr error
	err := l.PrintPatch(func(_ *Delta, _ *Hunk, ln *Line) error {
		werr = writeLine(out, ln)
		return werr
	})
	if werr != nil {
		return werr
	}
	return err
}

// WriteCompact renders PrintCompact output to out.
func (l *List) WriteCompact(out io.Writer) error {
	var werr error
	err := l.PrintCompact(func(_ *Delta, _ *Hunk, ln *Line) error {
		_, werr = out.Write(ln.Content)
		return werr
	})
	if werr != nil {
		return werr
	}
	return err
}

// writeLine writes a patch line with its origin prefix.
func writeLine(out io.Writer, ln *Line) error {
	_, err := out.Write(ln.Patch())
	return err
}

// Patch renders the line as it appears in a unified patch: the origin
// prefix, the content and, for content without a terminator, the
// no-newline marker. Header and binary lines are returned as they are.
func (ln *Line) Patch() []byte {
	prefix := ln.Origin.Prefix()
	if prefix == 0 {
		return ln.Content
	}

	buf := make([]byte, 0, len(ln.Content)+len(noNewlineAtEOF)+2)
	buf = append(buf, prefix)
	buf = append(buf, ln.Content...)
	if !hasEOL(ln.Content) {
		buf = append(buf, '\n')
		buf = append(buf, noNewlineAtEOF...)
	}
	return buf
}
