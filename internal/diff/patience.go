package diff

import "sort"

type anchor struct {
	a, b int
}

// patience matches lines that occur exactly once on both sides, keeps the
// longest increasing run of those matches and recurses between them. Ranges
// without unique lines fall back to Myers.
func (s *script) patience(aLo, aHi, bLo, bHi int) {
	aLo, aHi, bLo, bHi = s.trim(aLo, aHi, bLo, bHi)
	if aLo == aHi || bLo == bHi {
		s.markAll(aLo, aHi, bLo, bHi)
		return
	}

	anchors := s.uniqueAnchors(aLo, aHi, bLo, bHi)
	if len(anchors) == 0 {
		s.myers(aLo, aHi, bLo, bHi)
		return
	}

	pa, pb := aLo, bLo
	for _, an := range anchors {
		s.patience(pa, an.a, pb, an.b)
		pa, pb = an.a+1, an.b+1
	}
	s.patience(pa, aHi, pb, bHi)
}

// uniqueAnchors returns the longest chain of unique common lines, ordered
// on both sides.
func (s *script) uniqueAnchors(aLo, aHi, bLo, bHi int) []anchor {
	type seen struct {
		countA, countB int
		posA, posB     int
	}
	occ := make(map[int]*seen)
	for i := aLo; i < aHi; i++ {
		e := occ[s.a[i]]
		if e == nil {
			e = &seen{}
			occ[s.a[i]] = e
		}
		e.countA++
		e.posA = i
	}
	for j := bLo; j < bHi; j++ {
		e := occ[s.b[j]]
		if e == nil {
			continue
		}
		e.countB++
		e.posB = j
	}

	var candidates []anchor
	for i := aLo; i < aHi; i++ {
		e := occ[s.a[i]]
		if e.countA == 1 && e.countB == 1 {
			candidates = append(candidates, anchor{a: e.posA, b: e.posB})
		}
	}
	return longestIncreasing(candidates)
}

// longestIncreasing picks the longest subsequence of candidates (already
// ordered by a) whose b positions increase, using patience sorting.
func longestIncreasing(candidates []anchor) []anchor {
	if len(candidates) == 0 {
		return nil
	}

	// tails[k] is the index of the smallest tail of a run of length k+1
	var tails []int
	prev := make([]int, len(candidates))
	for i, c := range candidates {
		k := sort.Search(len(tails), func(t int) bool {
			return candidates[tails[t]].b >= c.b
		})
		if k > 0 {
			prev[i] = tails[k-1]
		} else {
			prev[i] = -1
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}

	out := make([]anchor, len(tails))
	for i, k := tails[len(tails)-1], len(tails)-1; k >= 0; i, k = prev[i], k-1 {
		out[k] = candidates[i]
	}
	return out
}
