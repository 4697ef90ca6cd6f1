package diff

import (
	"bytes"

	"github.com/zeebo/xxh3"
)

// splitLines cuts buf after every '\n'. The last line may lack the
// terminator.
func splitLines(buf []byte) [][]byte {
	if len(buf) == 0 {
		return nil
	}
	lines := make([][]byte, 0, bytes.Count(buf, []byte{'\n'})+1)
	for len(buf) > 0 {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			lines = append(lines, buf)
			break
		}
		lines = append(lines, buf[:i+1])
		buf = buf[i+1:]
	}
	return lines
}

func hasEOL(line []byte) bool {
	return len(line) > 0 && line[len(line)-1] == '\n'
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}

// normalize returns the comparison form of line under the whitespace flags.
// The terminator is never part of the key.
func normalize(line []byte, flags Flag) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})

	switch {
	case flags.Has(IgnoreWhitespace):
		out := make([]byte, 0, len(line))
		for _, c := range line {
			if !isSpace(c) {
				out = append(out, c)
			}
		}
		return out
	case flags.Has(IgnoreWhitespaceChange):
		out := make([]byte, 0, len(line))
		pending := false
		for _, c := range line {
			if isSpace(c) {
				pending = true
				continue
			}
			if pending && len(out) > 0 {
				out = append(out, ' ')
			}
			pending = false
			out = append(out, c)
		}
		// leading whitespace still counts, only its amount is ignored
		if len(line) > 0 && isSpace(line[0]) && len(out) > 0 {
			out = append([]byte{' '}, out...)
		}
		return out
	case flags.Has(IgnoreWhitespaceEOL):
		end := len(line)
		for end > 0 && isSpace(line[end-1]) {
			end--
		}
		return line[:end]
	}
	return line
}

// symbols interns normalized lines so the differs compare integers.
type symbols struct {
	buckets map[uint64][]int
	keys    [][]byte
}

func newSymbols(hint int) *symbols {
	return &symbols{buckets: make(map[uint64][]int, hint)}
}

func (s *symbols) intern(key []byte) int {
	h := xxh3.Hash(key)
	for _, id := range s.buckets[h] {
		if bytes.Equal(s.keys[id], key) {
			return id
		}
	}
	id := len(s.keys)
	s.keys = append(s.keys, key)
	s.buckets[h] = append(s.buckets[h], id)
	return id
}

// encode maps every line to a symbol. A final line without a terminator
// gets a distinct symbol from the same text with one, so a change of the
// trailing newline shows up as a changed line.
func (s *symbols) encode(lines [][]byte, flags Flag) []int {
	out := make([]int, len(lines))
	for i, line := range lines {
		sym := s.intern(normalize(line, flags)) << 1
		if !hasEOL(line) {
			sym |= 1
		}
		out[i] = sym
	}
	return out
}
