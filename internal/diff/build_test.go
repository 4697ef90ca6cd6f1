package diff

import (
	"testing"

	"tigdiff/internal/errors"
	"tigdiff/internal/object"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Classification(t *testing.T) {
	oldSrc := snapshot(map[string]string{
		"deleted.txt":   "gone\n",
		"modified.txt":  "one\n",
		"same.txt":      "same\n",
		"mode.sh":       "echo\n",
		"sub/inner.txt": "inner\n",
	})
	newSrc := snapshot(map[string]string{
		"added.txt":     "new\n",
		"modified.txt":  "two\n",
		"same.txt":      "same\n",
		"sub/inner.txt": "inner\n",
	})
	newSrc.put("mode.sh", object.ModeExecutable, object.KindTracked, "echo\n")
	newSrc.put("scratch.txt", object.ModeFile, object.KindUntracked, "tmp\n")
	newSrc.put("build.log", object.ModeFile, object.KindIgnored, "log\n")

	tests := []struct {
		name  string
		flags Flag
		want  map[string]Status
	}{
		{
			name:  "default",
			flags: Normal,
			want: map[string]Status{
				"added.txt":    Added,
				"deleted.txt":  Deleted,
				"mode.sh":      Modified,
				"modified.txt": Modified,
			},
		},
		{
			name:  "include everything",
			flags: IncludeUnmodified | IncludeUntracked | IncludeIgnored,
			want: map[string]Status{
				"added.txt":     Added,
				"build.log":     Ignored,
				"deleted.txt":   Deleted,
				"mode.sh":       Modified,
				"modified.txt":  Modified,
				"same.txt":      Unmodified,
				"scratch.txt":   Untracked,
				"sub/inner.txt": Unmodified,
			},
		},
		{
			name:  "reverse",
			flags: Reverse,
			want: map[string]Status{
				"added.txt":    Deleted,
				"deleted.txt":  Added,
				"mode.sh":      Modified,
				"modified.txt": Modified,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := mustBuild(t, oldSrc, newSrc, &Options{Flags: tt.flags})

			got := make(map[string]Status)
			for _, d := range l.Deltas() {
				got[d.Path()] = d.Status
			}
			assert.Equal(t, tt.want, got)
			require.NoError(t, validateOrder(l.deltas))
		})
	}
}

func TestBuild_EntryCountSumsToAll(t *testing.T) {
	oldSrc := snapshot(map[string]string{"a": "1\n", "b": "2\n", "c": "3\n"})
	newSrc := snapshot(map[string]string{"b": "2\n", "c": "x\n", "d": "4\n"})
	newSrc.put("e", object.ModeFile, object.KindUntracked, "5\n")

	l := mustBuild(t, oldSrc, newSrc, &Options{Flags: IncludeUnmodified | IncludeUntracked})

	sum := 0
	for _, s := range Statuses {
		sum += l.EntryCount(s)
	}
	assert.Equal(t, l.EntryCount(StatusAll), sum)
	assert.Equal(t, 5, l.Len())
	assert.Equal(t, 1, l.EntryCount(Deleted))
	assert.Equal(t, 1, l.EntryCount(Untracked))
}

func TestBuild_ReverseIsSymmetric(t *testing.T) {
	a := snapshot(map[string]string{"keep": "k\n", "only-a": "a\n", "x": "1\n"})
	b := snapshot(map[string]string{"keep": "k\n", "only-b": "b\n", "x": "2\n"})

	forward := mustBuild(t, a, b, nil).Deltas()
	backward := mustBuild(t, b, a, &Options{Flags: Reverse}).Deltas()

	require.Len(t, backward, len(forward))
	for i := range forward {
		f, r := forward[i], backward[i]
		assert.Equal(t, f.Path(), r.Path())
		assert.Equal(t, f.Old, r.Old)
		assert.Equal(t, f.New, r.New)
		assert.Equal(t, f.Status, r.Status)
	}
}

func TestBuild_AbsentSides(t *testing.T) {
	l := mustBuild(t, snapshot(map[string]string{"old": "1\n"}), snapshot(map[string]string{"new": "2\n"}), nil)
	require.Equal(t, 2, l.Len())

	added, deleted := l.Delta(0), l.Delta(1)
	assert.Equal(t, Added, added.Status)
	assert.False(t, added.Old.Exists())
	assert.True(t, added.Old.ID.IsZero())
	assert.Equal(t, "new", added.Old.Path)

	assert.Equal(t, Deleted, deleted.Status)
	assert.False(t, deleted.New.Exists())
	assert.True(t, deleted.Old.Flags.Has(FileValidID))
	assert.Zero(t, deleted.Similarity)
}

func TestBuild_IgnoreSubmodules(t *testing.T) {
	oldSrc := snapshot(map[string]string{"file": "1\n"})
	newSrc := snapshot(map[string]string{"file": "1\n"})
	newSrc.put("vendor/lib", object.ModeSubmodule, object.KindTracked, "commit")

	l := mustBuild(t, oldSrc, newSrc, nil)
	require.Equal(t, 1, l.Len())
	assert.True(t, l.Delta(0).New.Flags.Has(FileNoData))

	l = mustBuild(t, oldSrc, newSrc, &Options{Flags: IgnoreSubmodules})
	assert.Zero(t, l.Len())
}

func TestBuild_RejectsUnsortedInput(t *testing.T) {
	unsorted := sliceSource{
		{Path: "b", Mode: object.ModeFile, ID: object.Hash([]byte("b"))},
		{Path: "a", Mode: object.ModeFile, ID: object.Hash([]byte("a"))},
	}
	_, err := Build(sliceSource{}, unsorted, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ValidationError("", nil)))
}

func TestBuild_OptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "negative context", opts: Options{ContextLines: -1}},
		{name: "negative interhunk", opts: Options{InterhunkLines: -2}},
		{name: "negative max size", opts: Options{MaxSize: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(snapshot(nil), snapshot(nil), &tt.opts)
			require.Error(t, err)
			assert.Equal(t, 400, errors.StatusCode(err))
		})
	}
}

func TestBuild_Defaults(t *testing.T) {
	l := mustBuild(t, snapshot(nil), snapshot(nil), nil)
	o := l.Options()
	assert.Equal(t, DefaultContextLines, o.ContextLines)
	assert.Equal(t, "a", o.OldPrefix)
	assert.Equal(t, "b", o.NewPrefix)
	assert.EqualValues(t, DefaultMaxSize, o.MaxSize)
	assert.NotEmpty(t, l.ID())
}

func TestBuildFrom_Pathspec(t *testing.T) {
	oldSrc := snapshot(map[string]string{"docs/a.md": "a\n", "src/main.go": "x\n", "src/util.go": "u\n"})
	newSrc := snapshot(map[string]string{"docs/a.md": "b\n", "src/main.go": "y\n", "src/util.go": "v\n"})

	tests := []struct {
		name  string
		spec  []string
		flags Flag
		want  []string
	}{
		{name: "directory", spec: []string{"src"}, want: []string{"src/main.go", "src/util.go"}},
		{name: "glob on basename", spec: []string{"*.md"}, want: []string{"docs/a.md"}},
		{name: "glob literal", spec: []string{"*.md"}, flags: DisablePathspecMatch, want: nil},
		{name: "dot", spec: []string{"."}, want: []string{"docs/a.md", "src/main.go", "src/util.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := buildFrom(&Options{Pathspec: tt.spec, Flags: tt.flags}, func(Options) (object.Source, object.Source, error) {
				return oldSrc, newSrc, nil
			})
			require.NoError(t, err)

			var got []string
			for _, d := range l.Deltas() {
				got = append(got, d.Path())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
