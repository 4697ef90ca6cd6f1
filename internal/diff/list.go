package diff

import (
	"tigdiff/internal/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// List is an ordered set of deltas plus the options used to build it.
type List struct {
	id     string
	opts   Options
	deltas []Delta
	logger *zap.Logger
}

func newList(opts Options, deltas []Delta) *List {
	id := uuid.New().String()
	return &List{
		id:     id,
		opts:   opts,
		deltas: deltas,
		logger: opts.Logger.With(zap.String("diff_list", id)),
	}
}

// ID identifies the list in log output.
func (l *List) ID() string { return l.id }

// Options returns the normalized options the list was built with.
func (l *List) Options() Options {
	o := l.opts
	o.Pathspec = append([]string(nil), l.opts.Pathspec...)
	return o
}

// Len returns the number of deltas.
func (l *List) Len() int { return len(l.deltas) }

// Delta returns a copy of the i-th delta.
func (l *List) Delta(i int) Delta { return l.deltas[i] }

// Deltas returns a copy of every delta in order.
func (l *List) Deltas() []Delta {
	out := make([]Delta, len(l.deltas))
	copy(out, l.deltas)
	return out
}

// EntryCount counts deltas with the given status, or all of them for
// StatusAll.
func (l *List) EntryCount(status Status) int {
	if status == StatusAll {
		return len(l.deltas)
	}
	n := 0
	for i := range l.deltas {
		if l.deltas[i].Status == status {
			n++
		}
	}
	return n
}

// Close releases the deltas. Iterators over the list must not be used
// afterwards.
func (l *List) Close() {
	if l == nil {
		return
	}
	l.deltas = nil
}

// validateOrder checks the strict ordering invariant.
func validateOrder(deltas []Delta) error {
	for i := 1; i < len(deltas); i++ {
		prev, cur := deltas[i-1].key(), deltas[i].key()
		if prev >= cur {
			return errors.ValidationError("deltas out of order", []string{prev, cur})
		}
	}
	return nil
}
