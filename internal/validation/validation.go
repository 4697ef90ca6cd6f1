package validation

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tigdiff/internal/diff"
	"tigdiff/internal/errors"
	"tigdiff/internal/object"
)

// RevisionKind says which snapshot a side of a comparison reads.
type RevisionKind int

const (
	// RevisionDefault leaves the choice to the other side: the index for a
	// workdir comparison, HEAD otherwise.
	RevisionDefault RevisionKind = iota
	RevisionHead
	RevisionTree
	RevisionIndex
	RevisionWorkdir
)

type Revision struct {
	Kind RevisionKind
	Tree object.ID
}

const (
	FormatJSON    = "json"
	FormatPatch   = "patch"
	FormatCompact = "compact"
)

// DiffRequest is a validated GET /api/diff query.
type DiffRequest struct {
	Old              Revision
	New              Revision
	Format           string
	ContextLines     int
	InterhunkLines   int
	Patience         bool
	IgnoreWhitespace bool
	Reverse          bool
	Stat             bool
	Pathspec         []string
}

// StatusRequest is a validated GET /api/status query.
type StatusRequest struct {
	Pathspec []string
	Ignored  bool
}

func ValidateDiffRequest(r *http.Request) (*DiffRequest, error) {
	q := r.URL.Query()

	old, err := parseRevision(q.Get("old"), false)
	if err != nil {
		return nil, err
	}
	newRev, err := parseRevision(q.Get("new"), true)
	if err != nil {
		return nil, err
	}
	if newRev.Kind == RevisionDefault {
		newRev.Kind = RevisionWorkdir
	}
	if old.Kind == RevisionDefault && newRev.Kind != RevisionWorkdir {
		old.Kind = RevisionHead
	}

	req := &DiffRequest{
		Old:      old,
		New:      newRev,
		Format:   q.Get("format"),
		Pathspec: q["path"],
	}
	switch req.Format {
	case "":
		req.Format = FormatJSON
	case FormatJSON, FormatPatch, FormatCompact:
	default:
		return nil, errors.ValidationError("format must be json, patch or compact", req.Format)
	}

	if req.ContextLines, err = parseCount(q, "context"); err != nil {
		return nil, err
	}
	if req.InterhunkLines, err = parseCount(q, "interhunk"); err != nil {
		return nil, err
	}
	for name, dst := range map[string]*bool{
		"patience":          &req.Patience,
		"ignore_whitespace": &req.IgnoreWhitespace,
		"reverse":           &req.Reverse,
		"stat":              &req.Stat,
	} {
		if *dst, err = parseBool(q, name); err != nil {
			return nil, err
		}
	}

	if _, err := diff.NewPathspec(req.Pathspec, false); err != nil {
		return nil, err
	}
	return req, nil
}

func ValidateStatusRequest(r *http.Request) (*StatusRequest, error) {
	q := r.URL.Query()
	req := &StatusRequest{Pathspec: q["path"]}

	var err error
	if req.Ignored, err = parseBool(q, "ignored"); err != nil {
		return nil, err
	}
	if _, err := diff.NewPathspec(req.Pathspec, false); err != nil {
		return nil, err
	}
	return req, nil
}

// parseRevision accepts HEAD, a full hex tree ID, and for the new side the
// index and workdir keywords.
func parseRevision(s string, newSide bool) (Revision, error) {
	switch strings.ToLower(s) {
	case "":
		return Revision{Kind: RevisionDefault}, nil
	case "head":
		return Revision{Kind: RevisionHead}, nil
	case "index":
		if newSide {
			return Revision{Kind: RevisionIndex}, nil
		}
	case "workdir":
		if newSide {
			return Revision{Kind: RevisionWorkdir}, nil
		}
	default:
		id, err := object.ParseID(s)
		if err != nil {
			return Revision{}, errors.ValidationError("invalid tree id", s)
		}
		return Revision{Kind: RevisionTree, Tree: id}, nil
	}
	return Revision{}, errors.ValidationError("revision not allowed on the old side", s)
}

func parseCount(q url.Values, name string) (int, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.ValidationError(name+" must be a non-negative integer", s)
	}
	return n, nil
}

func parseBool(q url.Values, name string) (bool, error) {
	s := q.Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.ValidationError(name+" must be a boolean", s)
	}
	return b, nil
}
