package diff

import (
	"tigdiff/internal/errors"

	"go.uber.org/zap"
)

type mergeRule uint8

const (
	// old side from onto, new side from from, status recomputed
	mergeCombine mergeRule = iota
	// onto's delta is kept as is
	mergeKeepOnto
	// from's new side and status, onto's old side
	mergeTakeFrom
	// the path disappears from the result
	mergeDrop
)

type mergeKey struct {
	onto Status
	from Status
}

// mergeTable resolves a path present in both lists. Later assignments
// override earlier ones, so the pending-deletion rule wins over the rest.
var mergeTable = func() map[mergeKey]mergeRule {
	t := make(map[mergeKey]mergeRule, len(Statuses)*len(Statuses))
	for _, a := range Statuses {
		for _, b := range Statuses {
			t[mergeKey{a, b}] = mergeCombine
		}
	}
	for _, a := range Statuses {
		t[mergeKey{a, Unmodified}] = mergeKeepOnto
	}
	for _, b := range Statuses {
		t[mergeKey{Unmodified, b}] = mergeTakeFrom
	}
	for _, a := range Statuses {
		t[mergeKey{a, Deleted}] = mergeTakeFrom
	}
	for _, b := range Statuses {
		t[mergeKey{Deleted, b}] = mergeKeepOnto
	}
	// Created by the first step and removed by the second: the path
	// exists in neither end snapshot.
	t[mergeKey{Added, Deleted}] = mergeDrop
	t[mergeKey{Untracked, Deleted}] = mergeDrop
	t[mergeKey{Ignored, Deleted}] = mergeDrop
	return t
}()

// mergeFlags must agree between the two lists of a merge.
const mergeFlags = Reverse | IncludeUnmodified | IgnoreSubmodules

// Merge folds the deltas of from into l. A path present in both lists ends
// up with l's old side and from's new side; a deletion pending in l stays a
// deletion. Paths present in only one list pass through unchanged.
//
// Both lists must have been built with the same Reverse, IncludeUnmodified
// and IgnoreSubmodules flags. Reversed lists are merged in forward order
// and reversed again, so the result matches a merge of the forward lists.
func (l *List) Merge(from *List) error {
	if l == nil || from == nil {
		return errors.ValidationError("cannot merge a nil diff list", nil)
	}
	if got, want := from.opts.Flags&mergeFlags, l.opts.Flags&mergeFlags; got != want {
		return errors.ValidationError("cannot merge diff lists built with different flags",
			map[string]Flag{"onto": want, "from": got})
	}

	reversed := l.opts.Flags.Has(Reverse)
	onto, other := l.deltas, from.deltas
	if reversed {
		onto, other = reversedCopy(onto), reversedCopy(other)
	}
	merged := make([]Delta, 0, len(onto)+len(other))

	resolved, dropped := 0, 0
	i, j := 0, 0
	for i < len(onto) || j < len(other) {
		switch {
		case j >= len(other) || (i < len(onto) && onto[i].key() < other[j].key()):
			merged = append(merged, onto[i])
			i++
		case i >= len(onto) || other[j].key() < onto[i].key():
			merged = append(merged, other[j])
			j++
		default:
			resolved++
			if d, ok := mergeDeltas(&onto[i], &other[j], l.opts.Flags); ok {
				merged = append(merged, d)
			} else {
				dropped++
			}
			i++
			j++
		}
	}

	if reversed {
		for i := range merged {
			merged[i].reverse()
		}
	}
	l.deltas = merged
	l.logger.Debug("diff lists merged",
		zap.String("from", from.id),
		zap.Int("resolved", resolved),
		zap.Int("dropped", dropped),
		zap.Int("deltas", len(merged)),
	)
	return nil
}

func mergeDeltas(a, b *Delta, flags Flag) (Delta, bool) {
	var d Delta
	switch mergeTable[mergeKey{a.Status, b.Status}] {
	case mergeKeepOnto:
		d = *a
	case mergeTakeFrom:
		d = *b
		if b.Old.Exists() {
			d.Old, d.oldSrc = a.Old, a.oldSrc
		}
	case mergeDrop:
		return Delta{}, false
	default:
		d = combineDeltas(a, b)
	}

	if d.Status != Renamed && d.Status != Copied {
		d.Similarity = 0
	}
	if d.Status == Unmodified && !flags.Has(IncludeUnmodified) {
		return Delta{}, false
	}
	return d, true
}

func combineDeltas(a, b *Delta) Delta {
	d := Delta{
		Old:        a.Old,
		New:        b.New,
		Status:     a.Status,
		Similarity: a.Similarity,
		oldSrc:     a.oldSrc,
		newSrc:     b.newSrc,
	}
	if !d.Old.Exists() || !d.New.Exists() {
		return d
	}
	if d.Old.ID == d.New.ID && d.Old.Mode == d.New.Mode {
		switch b.Status {
		case Untracked, Ignored:
			d.Status = b.Status
		default:
			d.Status = Unmodified
		}
	}
	return d
}

func reversedCopy(deltas []Delta) []Delta {
	out := make([]Delta, len(deltas))
	for i, d := range deltas {
		d.reverse()
		out[i] = d
	}
	return out
}
