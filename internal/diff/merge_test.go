package diff

import (
	"testing"

	"tigdiff/internal/errors"
	"tigdiff/internal/object"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statuses(l *List) map[string]Status {
	out := make(map[string]Status)
	for _, d := range l.Deltas() {
		out[d.Path()] = d.Status
	}
	return out
}

func TestMergeTable(t *testing.T) {
	for _, a := range Statuses {
		for _, b := range Statuses {
			_, ok := mergeTable[mergeKey{a, b}]
			assert.True(t, ok, "missing rule for (%s, %s)", a, b)
		}
	}

	tests := []struct {
		onto, from Status
		want       mergeRule
	}{
		{Deleted, Modified, mergeKeepOnto},
		{Deleted, Untracked, mergeKeepOnto},
		{Deleted, Added, mergeKeepOnto},
		{Modified, Unmodified, mergeKeepOnto},
		{Unmodified, Modified, mergeTakeFrom},
		{Modified, Deleted, mergeTakeFrom},
		{Added, Deleted, mergeDrop},
		{Untracked, Deleted, mergeDrop},
		{Modified, Modified, mergeCombine},
		{Added, Modified, mergeCombine},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mergeTable[mergeKey{tt.onto, tt.from}], "(%s, %s)", tt.onto, tt.from)
	}
}

// threeWay sets up tree, index and working directory snapshots and returns
// the merged tree->index + index->workdir list next to the direct
// tree->workdir list.
func threeWay(t *testing.T, flags Flag, tree, index, workdir map[string]string) (merged, direct *List) {
	t.Helper()
	treeSrc := snapshot(tree)
	indexSrc := snapshot(index)
	workdirSrc := snapshot(nil)
	for p, content := range workdir {
		kind := object.KindTracked
		if _, tracked := index[p]; !tracked {
			kind = object.KindUntracked
		}
		workdirSrc.put(p, object.ModeFile, kind, content)
	}

	opts := &Options{Flags: IncludeUntracked | flags}
	merged = mustBuild(t, treeSrc, indexSrc, opts)
	require.NoError(t, merged.Merge(mustBuild(t, indexSrc, workdirSrc, opts)))
	direct = mustBuild(t, treeSrc, workdirSrc, opts)
	return merged, direct
}

func TestMerge_AgreesWithDirectComparison(t *testing.T) {
	tests := []struct {
		name    string
		tree    map[string]string
		index   map[string]string
		workdir map[string]string
		want    map[string]Status
	}{
		{
			name:    "staged modification",
			tree:    map[string]string{"a": "1\n"},
			index:   map[string]string{"a": "2\n"},
			workdir: map[string]string{"a": "2\n"},
			want:    map[string]Status{"a": Modified},
		},
		{
			name:    "workdir modification",
			tree:    map[string]string{"a": "1\n"},
			index:   map[string]string{"a": "1\n"},
			workdir: map[string]string{"a": "2\n"},
			want:    map[string]Status{"a": Modified},
		},
		{
			name:    "staged then modified again",
			tree:    map[string]string{"a": "1\n"},
			index:   map[string]string{"a": "2\n"},
			workdir: map[string]string{"a": "3\n"},
			want:    map[string]Status{"a": Modified},
		},
		{
			name:    "staged change reverted in workdir",
			tree:    map[string]string{"a": "1\n"},
			index:   map[string]string{"a": "2\n"},
			workdir: map[string]string{"a": "1\n"},
			want:    map[string]Status{},
		},
		{
			name:    "staged addition",
			tree:    map[string]string{},
			index:   map[string]string{"n": "x\n"},
			workdir: map[string]string{"n": "y\n"},
			want:    map[string]Status{"n": Added},
		},
		{
			name:    "staged addition removed from workdir",
			tree:    map[string]string{},
			index:   map[string]string{"n": "x\n"},
			workdir: map[string]string{},
			want:    map[string]Status{},
		},
		{
			name:    "deleted in workdir",
			tree:    map[string]string{"a": "1\n"},
			index:   map[string]string{"a": "1\n"},
			workdir: map[string]string{},
			want:    map[string]Status{"a": Deleted},
		},
		{
			name:    "untracked file",
			tree:    map[string]string{},
			index:   map[string]string{},
			workdir: map[string]string{"u": "?\n"},
			want:    map[string]Status{"u": Untracked},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, direct := threeWay(t, 0, tt.tree, tt.index, tt.workdir)
			assert.Equal(t, tt.want, statuses(merged))
			assert.Equal(t, tt.want, statuses(direct))
			assert.Equal(t, sides(direct), sides(merged))
			require.NoError(t, validateOrder(merged.deltas))
		})

		t.Run(tt.name+" reversed", func(t *testing.T) {
			want := make(map[string]Status, len(tt.want))
			for p, st := range tt.want {
				switch st {
				case Added:
					st = Deleted
				case Deleted:
					st = Added
				}
				want[p] = st
			}

			merged, direct := threeWay(t, Reverse, tt.tree, tt.index, tt.workdir)
			assert.Equal(t, want, statuses(merged))
			assert.Equal(t, want, statuses(direct))
			assert.Equal(t, sides(direct), sides(merged))
			require.NoError(t, validateOrder(merged.deltas))
		})
	}
}

// sides maps each path to the old and new blob IDs of its delta.
func sides(l *List) map[string][2]object.ID {
	out := make(map[string][2]object.ID)
	for _, d := range l.Deltas() {
		out[d.Path()] = [2]object.ID{d.Old.ID, d.New.ID}
	}
	return out
}

func TestMerge_ReversedKeepsBothEnds(t *testing.T) {
	merged, _ := threeWay(t, Reverse,
		map[string]string{"a.txt": "one\n"},
		map[string]string{"a.txt": "two\n"},
		map[string]string{"a.txt": "three\n"},
	)
	require.Equal(t, 1, merged.Len())

	d := merged.Delta(0)
	assert.Equal(t, Modified, d.Status)
	assert.Equal(t, object.Hash([]byte("three\n")), d.Old.ID)
	assert.Equal(t, object.Hash([]byte("one\n")), d.New.ID)
}

func TestMerge_RejectsMismatchedFlags(t *testing.T) {
	src := snapshot(map[string]string{"a": "1\n"})

	tests := []struct {
		name       string
		onto, from Flag
	}{
		{"reverse", Reverse, 0},
		{"include unmodified", 0, IncludeUnmodified},
		{"ignore submodules", IgnoreSubmodules, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			onto := mustBuild(t, src, src, &Options{Flags: tt.onto})
			err := onto.Merge(mustBuild(t, src, src, &Options{Flags: tt.from}))
			assert.True(t, errors.Is(err, errors.ValidationError("", nil)))
		})
	}

	onto := mustBuild(t, src, src, &Options{Flags: Patience})
	assert.NoError(t, onto.Merge(mustBuild(t, src, src, nil)))
}

func TestMerge_StagedDeletionResurrected(t *testing.T) {
	merged, direct := threeWay(t, 0,
		map[string]string{"a": "1\n", "b": "keep\n"},
		map[string]string{"b": "keep\n"},
		map[string]string{"a": "1 again\n", "b": "keep\n"},
	)

	assert.Equal(t, map[string]Status{"a": Deleted}, statuses(merged))
	assert.Equal(t, map[string]Status{"a": Modified}, statuses(direct))
}

func TestMerge_SidesComeFromBothLists(t *testing.T) {
	merged, _ := threeWay(t, 0,
		map[string]string{"a": "1\n"},
		map[string]string{"a": "2\n"},
		map[string]string{"a": "3\n"},
	)
	require.Equal(t, 1, merged.Len())

	d := merged.Delta(0)
	assert.Equal(t, object.Hash([]byte("1\n")), d.Old.ID)
	assert.Equal(t, object.Hash([]byte("3\n")), d.New.ID)
	assert.Zero(t, d.Similarity)

	files := collectForeach(t, merged)
	require.Len(t, files, 1)
	require.Len(t, files[0].hunks, 1)
	assert.Equal(t, []walkedLine{
		{origin: OriginDeletion, content: "1\n"},
		{origin: OriginAddition, content: "3\n"},
	}, files[0].hunks[0].lines)
}

func TestMerge_KeepsUnmodifiedWhenRequested(t *testing.T) {
	treeSrc := snapshot(map[string]string{"a": "1\n"})
	indexSrc := snapshot(map[string]string{"a": "2\n"})
	workdirSrc := snapshot(map[string]string{"a": "1\n"})

	opts := &Options{Flags: IncludeUnmodified}
	onto := mustBuild(t, treeSrc, indexSrc, opts)
	require.NoError(t, onto.Merge(mustBuild(t, indexSrc, workdirSrc, opts)))
	assert.Equal(t, map[string]Status{"a": Unmodified}, statuses(onto))
}

func TestMerge_Nil(t *testing.T) {
	l := mustBuild(t, snapshot(nil), snapshot(nil), nil)
	assert.Error(t, l.Merge(nil))
}
