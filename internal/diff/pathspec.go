package diff

import (
	"path"
	"strings"

	"tigdiff/internal/errors"
	"tigdiff/internal/object"
)

// Pathspec restricts which paths take part in a comparison. An empty
// pathspec matches everything.
type Pathspec struct {
	patterns []string
	literal  bool
}

// NewPathspec validates patterns. With literal set, patterns match as exact
// paths or directory prefixes only.
func NewPathspec(patterns []string, literal bool) (*Pathspec, error) {
	ps := &Pathspec{literal: literal}
	for _, p := range patterns {
		p = strings.TrimPrefix(path.Clean(p), "./")
		if p == "." {
			// "." matches the whole tree
			return &Pathspec{literal: literal}, nil
		}
		if !literal {
			if _, err := path.Match(p, ""); err != nil {
				return nil, errors.ValidationError("malformed pathspec pattern", p)
			}
		}
		ps.patterns = append(ps.patterns, p)
	}
	return ps, nil
}

// Match reports whether the snapshot path p is selected.
func (ps *Pathspec) Match(p string) bool {
	if ps == nil || len(ps.patterns) == 0 {
		return true
	}
	p = strings.TrimSuffix(p, "/")
	for _, pat := range ps.patterns {
		if p == pat || strings.HasPrefix(p, pat+"/") {
			return true
		}
		if ps.literal {
			continue
		}
		if ok, _ := path.Match(pat, p); ok {
			return true
		}
		if !strings.Contains(pat, "/") {
			if ok, _ := path.Match(pat, path.Base(p)); ok {
				return true
			}
		}
	}
	return false
}

// filteredSource applies a pathspec to the entries of another source.
type filteredSource struct {
	object.Source
	spec *Pathspec
}

func (o Options) filter(src object.Source) (object.Source, error) {
	if len(o.Pathspec) == 0 {
		return src, nil
	}
	spec, err := NewPathspec(o.Pathspec, o.Flags.Has(DisablePathspecMatch))
	if err != nil {
		return nil, err
	}
	return &filteredSource{Source: src, spec: spec}, nil
}

func (s *filteredSource) Entries() ([]object.Entry, error) {
	entries, err := s.Source.Entries()
	if err != nil {
		return nil, err
	}
	kept := entries[:0:0]
	for _, e := range entries {
		if s.spec.Match(e.Path) {
			kept = append(kept, e)
		}
	}
	return kept, nil
}
