package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tigdiff/internal/diff"
	"tigdiff/internal/object"
	"tigdiff/internal/repo"
	"tigdiff/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	repo    *repo.Repository
	head    object.ID
	handler http.Handler
}

// newFixture commits a.txt and b.txt, stages c.txt, then edits a.txt and
// adds an untracked new.txt in the working directory.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	r, err := repo.OpenInMemory(root, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}

	require.NoError(t, r.Stage("a.txt", object.ModeFile, []byte("one\ntwo\nthree\n")))
	require.NoError(t, r.Stage("b.txt", object.ModeFile, []byte("bee\n")))
	head, err := r.WriteTreeFromIndex()
	require.NoError(t, err)
	require.NoError(t, r.SetHead(head))
	require.NoError(t, r.Stage("c.txt", object.ModeFile, []byte("sea\n")))

	write("a.txt", "one\n2\nthree\n")
	write("b.txt", "bee\n")
	write("c.txt", "sea\n")
	write("new.txt", "fresh\n")

	return &fixture{repo: r, head: head, handler: NewServer(r, diff.Options{}, nil)}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func paths(files []types.FileView) map[string]string {
	out := make(map[string]string)
	for _, f := range files {
		p := f.NewPath
		if p == "" {
			p = f.OldPath
		}
		out[p] = f.Status
	}
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDiffHandler_JSON(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/diff")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decode[types.DiffResponse](t, rec)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "index", resp.Old)
	assert.Equal(t, "workdir", resp.New)
	assert.Nil(t, resp.Summary)
	require.Len(t, resp.Files, 1)

	file := resp.Files[0]
	assert.Equal(t, "modified", file.Status)
	assert.Equal(t, "a.txt", file.OldPath)
	assert.Equal(t, "a.txt", file.NewPath)
	assert.Equal(t, "100644", file.NewMode)
	assert.Equal(t, object.Hash([]byte("one\ntwo\nthree\n")).String(), file.OldID)
	assert.Equal(t, 1, file.Additions)
	assert.Equal(t, 1, file.Deletions)
	require.Len(t, file.Hunks, 1)

	assert.Equal(t, types.HunkView{
		Header:   "@@ -1,3 +1,3 @@\n",
		OldStart: 1,
		OldLines: 3,
		NewStart: 1,
		NewLines: 3,
		Lines: []types.LineView{
			{Origin: " ", Content: "one\n", OldLineno: 1, NewLineno: 1},
			{Origin: "-", Content: "two\n", OldLineno: 2},
			{Origin: "+", Content: "2\n", NewLineno: 2},
			{Origin: " ", Content: "three\n", OldLineno: 3, NewLineno: 3},
		},
	}, file.Hunks[0])
}

func TestDiffHandler_Comparisons(t *testing.T) {
	f := newFixture(t)
	empty := object.ZeroID.String()

	tests := []struct {
		name    string
		query   string
		wantOld string
		wantNew string
		want    map[string]string
	}{
		{
			name:    "workdir against index",
			query:   "",
			wantOld: "index",
			wantNew: "workdir",
			want:    map[string]string{"a.txt": "modified"},
		},
		{
			name:    "index against head",
			query:   "new=index",
			wantOld: f.head.String(),
			wantNew: "index",
			want:    map[string]string{"c.txt": "added"},
		},
		{
			name:    "workdir against head through the index",
			query:   "old=HEAD",
			wantOld: f.head.String(),
			wantNew: "workdir",
			want:    map[string]string{"a.txt": "modified", "c.txt": "added"},
		},
		{
			name:    "tree to tree",
			query:   "old=" + empty + "&new=HEAD",
			wantOld: empty,
			wantNew: f.head.String(),
			want:    map[string]string{"a.txt": "added", "b.txt": "added"},
		},
		{
			name:    "reversed",
			query:   "old=" + empty + "&new=HEAD&reverse=true",
			wantOld: empty,
			wantNew: f.head.String(),
			want:    map[string]string{"a.txt": "deleted", "b.txt": "deleted"},
		},
		{
			name:    "pathspec",
			query:   "old=HEAD&path=c.*",
			wantOld: f.head.String(),
			wantNew: "workdir",
			want:    map[string]string{"c.txt": "added"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, "/api/diff?"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			resp := decode[types.DiffResponse](t, rec)
			assert.Equal(t, tt.wantOld, resp.Old)
			assert.Equal(t, tt.wantNew, resp.New)
			assert.Equal(t, tt.want, paths(resp.Files))
		})
	}
}

func TestDiffHandler_Stat(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/diff?old=HEAD&stat=true")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.DiffResponse](t, rec)

	require.Len(t, resp.Files, 2)
	for _, file := range resp.Files {
		assert.Empty(t, file.Hunks)
	}
	assert.Equal(t, 1, resp.Files[0].Additions)
	assert.Equal(t, 1, resp.Files[0].Deletions)
	assert.Equal(t, 1, resp.Files[1].Additions)
	assert.Equal(t, &types.Summary{Files: 2, Additions: 2, Deletions: 1}, resp.Summary)
}

func TestDiffHandler_TextFormats(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/diff?format=compact&old=HEAD")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "M\ta.txt\nA\tc.txt\n", rec.Body.String())

	rec = f.get(t, "/api/diff?format=patch")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/x-diff; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "diff --git a/a.txt b/a.txt\n")
	assert.Contains(t, body, "--- a/a.txt\n+++ b/a.txt\n@@ -1,3 +1,3 @@\n one\n-two\n+2\n three\n")
}

func TestDiffHandler_Errors(t *testing.T) {
	f := newFixture(t)
	missing := object.Hash([]byte("no such tree")).String()

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantType   string
	}{
		{"unknown format", "/api/diff?format=html", http.StatusBadRequest, "VALIDATION"},
		{"bad tree id", "/api/diff?old=xyz", http.StatusBadRequest, "VALIDATION"},
		{"negative context", "/api/diff?context=-2", http.StatusBadRequest, "VALIDATION"},
		{"unknown tree", "/api/diff?old=" + missing + "&new=HEAD", http.StatusNotFound, "NOT_FOUND"},
		{"bad status flag", "/api/status?ignored=perhaps", http.StatusBadRequest, "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decode[types.ErrorResponse](t, rec)
			assert.Equal(t, tt.wantType, resp.Type)
			assert.NotEmpty(t, resp.Message)
		})
	}

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/diff", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestDiffHandler_Status(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[types.StatusResponse](t, rec)

	assert.Equal(t, types.StatusResponse{
		Head:      f.head.String(),
		Staged:    []types.StatusEntry{{Path: "c.txt", Status: "added"}},
		Unstaged:  []types.StatusEntry{{Path: "a.txt", Status: "modified"}},
		Untracked: []string{"new.txt"},
	}, resp)
}

func TestDiffHandler_StatusEmptyRepository(t *testing.T) {
	r, err := repo.OpenInMemory(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer r.Close()

	rec := httptest.NewRecorder()
	NewServer(r, diff.Options{}, nil).ServeHTTP(rec, httptest.NewRequest("GET", "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"head":"","staged":[],"unstaged":[],"untracked":[]}`, rec.Body.String())
}
