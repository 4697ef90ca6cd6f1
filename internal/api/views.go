package api

import (
	"net/http"

	"tigdiff/internal/diff"
	"tigdiff/shared/types"
)

func fileView(d *diff.Delta) types.FileView {
	v := types.FileView{
		Status:     d.Status.String(),
		Binary:     d.Binary,
		Similarity: d.Similarity,
	}
	if d.Old.Exists() {
		v.OldPath = d.Old.Path
		v.OldMode = d.Old.Mode.String()
		if !d.Old.ID.IsZero() {
			v.OldID = d.Old.ID.String()
		}
	}
	if d.New.Exists() {
		v.NewPath = d.New.Path
		v.NewMode = d.New.Mode.String()
		if !d.New.ID.IsZero() {
			v.NewID = d.New.ID.String()
		}
	}
	return v
}

// fileViews renders every delta with its hunks and lines.
func fileViews(l *diff.List) ([]types.FileView, error) {
	files := []types.FileView{}
	err := l.Foreach(
		func(d *diff.Delta, _ float64) error {
			files = append(files, fileView(d))
			return nil
		},
		func(_ *diff.Delta, h *diff.Hunk) error {
			f := &files[len(files)-1]
			f.Hunks = append(f.Hunks, types.HunkView{
				Header:   h.Header,
				OldStart: h.OldStart,
				OldLines: h.OldLines,
				NewStart: h.NewStart,
				NewLines: h.NewLines,
				Lines:    []types.LineView{},
			})
			return nil
		},
		func(_ *diff.Delta, _ *diff.Hunk, ln *diff.Line) error {
			f := &files[len(files)-1]
			h := &f.Hunks[len(f.Hunks)-1]
			h.Lines = append(h.Lines, types.LineView{
				Origin:    string(rune(ln.Origin)),
				Content:   string(ln.Content),
				OldLineno: ln.OldLineno,
				NewLineno: ln.NewLineno,
			})
			switch ln.Origin.Prefix() {
			case '+':
				f.Additions++
			case '-':
				f.Deletions++
			}
			return nil
		},
	)
	return files, err
}

// statViews renders deltas without hunks, with line counts computed in
// parallel.
func statViews(r *http.Request, l *diff.List) ([]types.FileView, *types.Summary, error) {
	stats, err := l.Stats(r.Context(), statWorkers)
	if err != nil {
		return nil, nil, err
	}

	files := make([]types.FileView, 0, len(stats))
	summary := &types.Summary{}
	for i, d := range l.Deltas() {
		v := fileView(&d)
		v.Binary = stats[i].Binary
		v.Additions = stats[i].Additions
		v.Deletions = stats[i].Deletions
		files = append(files, v)

		summary.Files++
		summary.Additions += v.Additions
		summary.Deletions += v.Deletions
	}
	return files, summary, nil
}
