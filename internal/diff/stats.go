package diff

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FileStats summarizes the text diff of one delta.
type FileStats struct {
	Path      string `json:"path"`
	Status    Status `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Binary    bool   `json:"binary"`
}

// Stats computes per-file line counts, running up to workers text diffs at
// once. workers <= 0 means one per delta. The result is in list order.
func (l *List) Stats(ctx context.Context, workers int) ([]FileStats, error) {
	out := make([]FileStats, len(l.deltas))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range l.deltas {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var p filePatch
			p.reset(l.deltas[i])
			if err := p.compute(&l.opts); err != nil {
				return err
			}
			out[i] = p.stats()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *filePatch) stats() FileStats {
	s := FileStats{
		Path:   p.delta.Path(),
		Status: p.delta.Status,
		Binary: p.delta.Binary,
	}
	for _, ln := range p.lines {
		switch ln.Origin {
		case OriginAddition, OriginAddEOFNL:
			s.Additions++
		case OriginDeletion, OriginDelEOFNL:
			s.Deletions++
		}
	}
	return s
}
