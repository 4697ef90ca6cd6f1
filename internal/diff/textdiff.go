package diff

import (
	"bytes"
	"fmt"
	"strconv"

	"tigdiff/internal/errors"
	"tigdiff/internal/object"
)

// binarySniffLen is how much of a buffer is searched for NUL bytes.
const binarySniffLen = 8000

// filePatch is the text diff of one delta. Hunks and lines are kept in one
// arena that the walker reuses from file to file.
type filePatch struct {
	delta Delta
	hunks []Hunk
	spans []span
	lines []Line
}

type span struct {
	start, end int
}

type region struct {
	aStart, aEnd int
	bStart, bEnd int
}

func (p *filePatch) reset(d Delta) {
	p.delta = d
	p.hunks = p.hunks[:0]
	p.spans = p.spans[:0]
	p.lines = p.lines[:0]
}

func (p *filePatch) hunkLines(i int) []Line {
	sp := p.spans[i]
	return p.lines[sp.start:sp.end]
}

// compute loads both sides of the delta and fills the arena. Binary deltas
// end up with no hunks and Binary set.
func (p *filePatch) compute(o *Options) error {
	d := &p.delta
	if d.Binary || binaryByHint(d, o) {
		d.Binary = true
		return nil
	}

	oldData, err := loadSide(d.Old, d.oldSrc)
	if err != nil {
		return err
	}
	newData, err := loadSide(d.New, d.newSrc)
	if err != nil {
		return err
	}

	if int64(len(oldData)) > o.MaxSize || int64(len(newData)) > o.MaxSize ||
		(!o.Flags.Has(ForceText) && (isBinary(oldData) || isBinary(newData))) {
		d.Binary = true
		return nil
	}
	for _, f := range []*File{&d.Old, &d.New} {
		if f.Exists() {
			f.Flags |= FileNotBinary
		}
	}

	p.diffText(oldData, newData, o)
	return nil
}

func binaryByHint(d *Delta, o *Options) bool {
	if d.Old.Size > o.MaxSize || d.New.Size > o.MaxSize {
		return true
	}
	if o.Flags.Has(ForceText) {
		return false
	}
	return d.Old.Flags.Has(FileBinary) || d.New.Flags.Has(FileBinary)
}

func isBinary(data []byte) bool {
	n := min(len(data), binarySniffLen)
	return bytes.IndexByte(data[:n], 0) >= 0
}

func loadSide(f File, src object.Source) ([]byte, error) {
	if !f.Exists() || f.Flags.Has(FileNoData) || src == nil {
		return nil, nil
	}
	data, err := src.Load(f.entry())
	if err != nil {
		return nil, errors.ContentSourceError(f.Path, err)
	}
	return data, nil
}

func (p *filePatch) diffText(oldData, newData []byte, o *Options) {
	oldLines := splitLines(oldData)
	newLines := splitLines(newData)

	syms := newSymbols(len(oldLines) + len(newLines))
	sc := newScript(
		syms.encode(oldLines, o.Flags),
		syms.encode(newLines, o.Flags),
		o.Flags.Has(Patience),
	)
	sc.run()

	oldNoEOL := len(oldLines) > 0 && !hasEOL(oldLines[len(oldLines)-1])
	newNoEOL := len(newLines) > 0 && !hasEOL(newLines[len(newLines)-1])
	eofChange := len(oldLines) > 0 && len(newLines) > 0 && oldNoEOL != newNoEOL

	n, m := len(oldLines), len(newLines)
	regions := sc.regions()
	ctx := o.ContextLines
	gap := 2*ctx + o.InterhunkLines

	for k := 0; k < len(regions); {
		first, last := regions[k], regions[k]
		k++
		for k < len(regions) && regions[k].aStart-last.aEnd <= gap {
			last = regions[k]
			k++
		}

		aFrom := max(0, first.aStart-ctx)
		bFrom := max(0, first.bStart-(first.aStart-aFrom))
		aTo := min(n, last.aEnd+ctx)
		bTo := min(m, last.bEnd+(aTo-last.aEnd))

		start := len(p.lines)
		i, j := aFrom, bFrom
		for i < aTo || j < bTo {
			if i < aTo && j < bTo && !sc.delA[i] && !sc.insB[j] {
				p.lines = append(p.lines, Line{
					Origin:    OriginContext,
					Content:   oldLines[i],
					OldLineno: i + 1,
					NewLineno: j + 1,
				})
				i++
				j++
				continue
			}
			for i < aTo && (sc.delA[i] || j >= bTo) {
				origin := OriginDeletion
				if eofChange && oldNoEOL && i == n-1 {
					origin = OriginDelEOFNL
				}
				p.lines = append(p.lines, Line{Origin: origin, Content: oldLines[i], OldLineno: i + 1})
				i++
			}
			for j < bTo && (sc.insB[j] || i >= aTo) {
				origin := OriginAddition
				if eofChange && newNoEOL && j == m-1 {
					origin = OriginAddEOFNL
				}
				p.lines = append(p.lines, Line{Origin: origin, Content: newLines[j], NewLineno: j + 1})
				j++
			}
		}

		r := Range{OldLines: aTo - aFrom, NewLines: bTo - bFrom}
		r.OldStart = hunkStart(aFrom, r.OldLines)
		r.NewStart = hunkStart(bFrom, r.NewLines)
		p.hunks = append(p.hunks, Hunk{Range: r, Header: hunkHeader(r)})
		p.spans = append(p.spans, span{start: start, end: len(p.lines)})
	}
}

// regions lists the maximal runs of changed lines, aligned on both sides.
func (s *script) regions() []region {
	n, m := len(s.a), len(s.b)
	var out []region
	i, j := 0, 0
	for i < n || j < m {
		if i < n && j < m && !s.delA[i] && !s.insB[j] {
			i++
			j++
			continue
		}
		r := region{aStart: i, bStart: j}
		for i < n && (s.delA[i] || j >= m) {
			i++
		}
		for j < m && (s.insB[j] || i >= n) {
			j++
		}
		r.aEnd, r.bEnd = i, j
		out = append(out, r)
	}
	return out
}

func hunkStart(from, count int) int {
	if count == 0 {
		return from
	}
	return from + 1
}

func hunkHeader(r Range) string {
	return fmt.Sprintf("@@ -%s +%s @@\n", rangeSpec(r.OldStart, r.OldLines), rangeSpec(r.NewStart, r.NewLines))
}

func rangeSpec(start, count int) string {
	if count == 1 {
		return strconv.Itoa(start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
