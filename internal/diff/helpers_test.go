package diff

import (
	"fmt"
	"sort"
	"testing"

	"tigdiff/internal/object"

	"github.com/stretchr/testify/require"
)

// memSource is an in-memory snapshot for tests.
type memSource struct {
	entries map[string]object.Entry
	data    map[string][]byte
	fail    map[string]error
}

func snapshot(files map[string]string) *memSource {
	s := &memSource{
		entries: make(map[string]object.Entry),
		data:    make(map[string][]byte),
		fail:    make(map[string]error),
	}
	for p, content := range files {
		s.put(p, object.ModeFile, object.KindTracked, content)
	}
	return s
}

func (s *memSource) put(p string, mode object.Mode, kind object.Kind, content string) *memSource {
	data := []byte(content)
	e := object.Entry{Path: p, Mode: mode, Size: int64(len(data)), ID: object.Hash(data), Kind: kind}
	if mode.IsSubmodule() || mode.IsTree() {
		e.Size = 0
	}
	s.entries[p] = e
	s.data[p] = data
	return s
}

func (s *memSource) failOn(p string) *memSource {
	s.fail[p] = fmt.Errorf("object for %s is missing", p)
	return s
}

func (s *memSource) Entries() ([]object.Entry, error) {
	out := make([]object.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *memSource) Load(e object.Entry) ([]byte, error) {
	if err := s.fail[e.Path]; err != nil {
		return nil, err
	}
	return s.data[e.Path], nil
}

// sliceSource yields entries exactly as given, sorted or not.
type sliceSource []object.Entry

func (s sliceSource) Entries() ([]object.Entry, error)   { return s, nil }
func (s sliceSource) Load(object.Entry) ([]byte, error) { return nil, nil }

func mustBuild(t *testing.T, oldSrc, newSrc object.Source, opts *Options) *List {
	t.Helper()
	l, err := Build(oldSrc, newSrc, opts)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

type walkedFile struct {
	path   string
	status Status
	binary bool
	hunks  []walkedHunk
}

type walkedHunk struct {
	rng   Range
	lines []walkedLine
}

type walkedLine struct {
	origin  Origin
	content string
}

// collectForeach records everything Foreach reports.
func collectForeach(t *testing.T, l *List) []walkedFile {
	t.Helper()
	var files []walkedFile
	err := l.Foreach(
		func(d *Delta, _ float64) error {
			files = append(files, walkedFile{path: d.Path(), status: d.Status, binary: d.Binary})
			return nil
		},
		func(_ *Delta, h *Hunk) error {
			f := &files[len(files)-1]
			f.hunks = append(f.hunks, walkedHunk{rng: h.Range})
			return nil
		},
		func(_ *Delta, _ *Hunk, ln *Line) error {
			f := &files[len(files)-1]
			h := &f.hunks[len(f.hunks)-1]
			h.lines = append(h.lines, walkedLine{origin: ln.Origin, content: string(ln.Content)})
			return nil
		},
	)
	require.NoError(t, err)
	return files
}

// applyLines rebuilds both sides of a file from its hunks, given the
// original old content, to check the edit script is valid.
func applyLines(oldContent string, hunks []walkedHunk) string {
	oldLines := splitLines([]byte(oldContent))
	var out []byte
	next := 0
	for _, h := range hunks {
		start := h.rng.OldStart - 1
		if h.rng.OldLines == 0 {
			start = h.rng.OldStart
		}
		for ; next < start; next++ {
			out = append(out, oldLines[next]...)
		}
		for _, ln := range h.lines {
			switch ln.origin {
			case OriginContext:
				out = append(out, ln.content...)
				next++
			case OriginDeletion, OriginDelEOFNL:
				next++
			case OriginAddition, OriginAddEOFNL:
				out = append(out, ln.content...)
			}
		}
	}
	for ; next < len(oldLines); next++ {
		out = append(out, oldLines[next]...)
	}
	return string(out)
}
