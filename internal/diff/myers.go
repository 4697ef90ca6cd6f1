package diff

// script marks which lines of each side are not part of the common
// subsequence. Unmarked lines pair up in order.
type script struct {
	a, b        []int
	delA, insB  []bool
	usePatience bool
}

func newScript(a, b []int, patience bool) *script {
	return &script{
		a:           a,
		b:           b,
		delA:        make([]bool, len(a)),
		insB:        make([]bool, len(b)),
		usePatience: patience,
	}
}

func (s *script) run() {
	if s.usePatience {
		s.patience(0, len(s.a), 0, len(s.b))
		return
	}
	s.myers(0, len(s.a), 0, len(s.b))
}

// trim skips the common prefix and suffix of a range.
func (s *script) trim(aLo, aHi, bLo, bHi int) (int, int, int, int) {
	for aLo < aHi && bLo < bHi && s.a[aLo] == s.b[bLo] {
		aLo++
		bLo++
	}
	for aLo < aHi && bLo < bHi && s.a[aHi-1] == s.b[bHi-1] {
		aHi--
		bHi--
	}
	return aLo, aHi, bLo, bHi
}

// markAll handles ranges where one side is empty (or nothing matches).
func (s *script) markAll(aLo, aHi, bLo, bHi int) {
	for i := aLo; i < aHi; i++ {
		s.delA[i] = true
	}
	for j := bLo; j < bHi; j++ {
		s.insB[j] = true
	}
}

// myers is the linear space divide and conquer variant of Myers' O(ND)
// greedy algorithm.
func (s *script) myers(aLo, aHi, bLo, bHi int) {
	aLo, aHi, bLo, bHi = s.trim(aLo, aHi, bLo, bHi)
	if aLo == aHi || bLo == bHi {
		s.markAll(aLo, aHi, bLo, bHi)
		return
	}

	x, y, ok := s.bisect(aLo, aHi, bLo, bHi)
	if !ok {
		s.markAll(aLo, aHi, bLo, bHi)
		return
	}
	s.myers(aLo, x, bLo, y)
	s.myers(x, aHi, y, bHi)
}

// bisect finds the middle snake of the edit graph of a[aLo:aHi] and
// b[bLo:bHi] and returns the absolute split point.
func (s *script) bisect(aLo, aHi, bLo, bHi int) (int, int, bool) {
	n, m := aHi-aLo, bHi-bLo
	maxD := (n + m + 1) / 2
	offset := maxD
	size := 2*maxD + 2

	v1 := make([]int, size)
	v2 := make([]int, size)
	for i := range v1 {
		v1[i] = -1
		v2[i] = -1
	}
	v1[offset+1] = 0
	v2[offset+1] = 0

	delta := n - m
	front := delta%2 != 0
	k1start, k1end, k2start, k2end := 0, 0, 0, 0

	for d := 0; d < maxD; d++ {
		for k1 := -d + k1start; k1 <= d-k1end; k1 += 2 {
			k1off := offset + k1
			var x1 int
			if k1 == -d || (k1 != d && v1[k1off-1] < v1[k1off+1]) {
				x1 = v1[k1off+1]
			} else {
				x1 = v1[k1off-1] + 1
			}
			y1 := x1 - k1
			for x1 < n && y1 < m && s.a[aLo+x1] == s.b[bLo+y1] {
				x1++
				y1++
			}
			v1[k1off] = x1
			switch {
			case x1 > n:
				k1end += 2
			case y1 > m:
				k1start += 2
			case front:
				k2off := offset + delta - k1
				if k2off >= 0 && k2off < size && v2[k2off] != -1 {
					if x1 >= n-v2[k2off] {
						return aLo + x1, bLo + y1, true
					}
				}
			}
		}

		for k2 := -d + k2start; k2 <= d-k2end; k2 += 2 {
			k2off := offset + k2
			var x2 int
			if k2 == -d || (k2 != d && v2[k2off-1] < v2[k2off+1]) {
				x2 = v2[k2off+1]
			} else {
				x2 = v2[k2off-1] + 1
			}
			y2 := x2 - k2
			for x2 < n && y2 < m && s.a[aHi-x2-1] == s.b[bHi-y2-1] {
				x2++
				y2++
			}
			v2[k2off] = x2
			switch {
			case x2 > n:
				k2end += 2
			case y2 > m:
				k2start += 2
			case !front:
				k1off := offset + delta - k2
				if k1off >= 0 && k1off < size && v1[k1off] != -1 {
					x1 := v1[k1off]
					y1 := offset + x1 - k1off
					if x1 >= n-x2 {
						return aLo + x1, bLo + y1, true
					}
				}
			}
		}
	}
	return 0, 0, false
}
