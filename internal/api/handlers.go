// internal/api/handlers.go
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"runtime"

	"tigdiff/internal/diff"
	"tigdiff/internal/errors"
	"tigdiff/internal/logging"
	"tigdiff/internal/object"
	"tigdiff/internal/validation"
	"tigdiff/shared/types"

	"go.uber.org/zap"
)

// Repository is what the handlers read snapshots from.
type Repository interface {
	diff.Repository
	Head() (object.ID, error)
}

type DiffHandler struct {
	repo     Repository
	defaults diff.Options
	logger   *logging.Logger
}

// NewDiffHandler serves diffs and status for repo. defaults are applied
// before any per-request option.
func NewDiffHandler(repo Repository, defaults diff.Options, logger *logging.Logger) *DiffHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &DiffHandler{repo: repo, defaults: defaults, logger: logger}
}

func (h *DiffHandler) Diff(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidateDiffRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	opts := h.options(r, req)
	list, oldLabel, newLabel, err := h.build(req, &opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer list.Close()

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch req.Format {
	case validation.FormatPatch:
		contentType = "text/x-diff; charset=utf-8"
		err = list.WritePatch(&buf)
	case validation.FormatCompact:
		contentType = "text/plain; charset=utf-8"
		err = list.WriteCompact(&buf)
	default:
		resp := types.DiffResponse{ID: list.ID(), Old: oldLabel, New: newLabel}
		if req.Stat {
			resp.Files, resp.Summary, err = statViews(r, list)
		} else {
			resp.Files, err = fileViews(list)
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *DiffHandler) Status(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidateStatusRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	head, err := h.repo.Head()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	opts := h.defaults
	opts.Flags = diff.IncludeUntracked
	if req.Ignored {
		opts.Flags |= diff.IncludeIgnored
	}
	opts.Pathspec = req.Pathspec
	opts.Logger = h.logger.WithRequestID(r.Context())

	staged, err := diff.IndexToTree(h.repo, &opts, head)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer staged.Close()

	unstaged, err := diff.WorkdirToIndex(h.repo, &opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer unstaged.Close()

	resp := types.StatusResponse{
		Staged:    []types.StatusEntry{},
		Unstaged:  []types.StatusEntry{},
		Untracked: []string{},
	}
	if !head.IsZero() {
		resp.Head = head.String()
	}
	for _, d := range staged.Deltas() {
		resp.Staged = append(resp.Staged, types.StatusEntry{Path: d.Path(), Status: d.Status.String()})
	}
	for _, d := range unstaged.Deltas() {
		switch d.Status {
		case diff.Untracked:
			resp.Untracked = append(resp.Untracked, d.Path())
		case diff.Ignored:
			resp.Ignored = append(resp.Ignored, d.Path())
		default:
			resp.Unstaged = append(resp.Unstaged, types.StatusEntry{Path: d.Path(), Status: d.Status.String()})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *DiffHandler) options(r *http.Request, req *validation.DiffRequest) diff.Options {
	o := h.defaults
	if req.ContextLines > 0 {
		o.ContextLines = req.ContextLines
	}
	if req.InterhunkLines > 0 {
		o.InterhunkLines = req.InterhunkLines
	}
	if req.Patience {
		o.Flags |= diff.Patience
	}
	if req.IgnoreWhitespace {
		o.Flags |= diff.IgnoreWhitespace
	}
	if req.Reverse {
		o.Flags |= diff.Reverse
	}
	o.Pathspec = req.Pathspec
	o.Logger = h.logger.WithRequestID(r.Context())
	return o
}

// build picks the comparison the two revisions describe and returns it
// with labels for both sides.
func (h *DiffHandler) build(req *validation.DiffRequest, opts *diff.Options) (*diff.List, string, string, error) {
	if req.New.Kind == validation.RevisionWorkdir && req.Old.Kind == validation.RevisionDefault {
		l, err := diff.WorkdirToIndex(h.repo, opts)
		return l, "index", "workdir", err
	}

	oldTree, err := h.resolve(req.Old)
	if err != nil {
		return nil, "", "", err
	}
	oldLabel := oldTree.String()

	switch req.New.Kind {
	case validation.RevisionWorkdir:
		l, err := diff.WorkdirToTreeWithIndex(h.repo, opts, oldTree)
		return l, oldLabel, "workdir", err
	case validation.RevisionIndex:
		l, err := diff.IndexToTree(h.repo, opts, oldTree)
		return l, oldLabel, "index", err
	default:
		newTree, err := h.resolve(req.New)
		if err != nil {
			return nil, "", "", err
		}
		l, err := diff.TreeToTree(h.repo, opts, oldTree, newTree)
		return l, oldLabel, newTree.String(), err
	}
}

func (h *DiffHandler) resolve(rev validation.Revision) (object.ID, error) {
	if rev.Kind == validation.RevisionTree {
		return rev.Tree, nil
	}
	return h.repo.Head()
}

func (h *DiffHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.StatusCode(err)
	resp := types.ErrorResponse{Type: string(errors.ErrorTypeInternal), Message: err.Error()}

	var e *errors.Error
	if errors.As(err, &e) {
		resp.Type = string(e.Type)
		resp.Details = e.Details
	}
	if code >= http.StatusInternalServerError {
		h.logger.WithRequestID(r.Context()).Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statWorkers bounds the text diffs a stat request computes at once.
var statWorkers = runtime.NumCPU()
