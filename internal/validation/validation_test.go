package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tigdiff/internal/errors"
	"tigdiff/internal/object"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDiffRequest(t *testing.T) {
	tree := object.Hash([]byte("tree"))

	tests := []struct {
		name    string
		query   string
		want    DiffRequest
		wantErr bool
	}{
		{
			name:  "defaults",
			query: "",
			want: DiffRequest{
				Old:    Revision{Kind: RevisionDefault},
				New:    Revision{Kind: RevisionWorkdir},
				Format: FormatJSON,
			},
		},
		{
			name:  "cached",
			query: "new=index",
			want: DiffRequest{
				Old:    Revision{Kind: RevisionHead},
				New:    Revision{Kind: RevisionIndex},
				Format: FormatJSON,
			},
		},
		{
			name:  "tree to tree with options",
			query: "old=HEAD&new=" + tree.String() + "&format=patch&context=5&interhunk=1&patience=true&ignore_whitespace=1&reverse=false&stat=true&path=src&path=*.go",
			want: DiffRequest{
				Old:              Revision{Kind: RevisionHead},
				New:              Revision{Kind: RevisionTree, Tree: tree},
				Format:           FormatPatch,
				ContextLines:     5,
				InterhunkLines:   1,
				Patience:         true,
				IgnoreWhitespace: true,
				Stat:             true,
				Pathspec:         []string{"src", "*.go"},
			},
		},
		{
			name:  "uppercase tree id",
			query: "old=" + strings.ToUpper(tree.String()) + "&format=compact",
			want: DiffRequest{
				Old:    Revision{Kind: RevisionTree, Tree: tree},
				New:    Revision{Kind: RevisionWorkdir},
				Format: FormatCompact,
			},
		},
		{name: "short tree id", query: "old=abc123", wantErr: true},
		{name: "index on old side", query: "old=index", wantErr: true},
		{name: "workdir on old side", query: "old=workdir&new=index", wantErr: true},
		{name: "unknown format", query: "format=html", wantErr: true},
		{name: "negative context", query: "context=-1", wantErr: true},
		{name: "non numeric context", query: "context=lots", wantErr: true},
		{name: "bad boolean", query: "patience=maybe", wantErr: true},
		{name: "malformed pathspec", query: "path=%5B", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/diff?"+tt.query, nil)
			got, err := ValidateDiffRequest(req)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ValidationError("", nil)))
				assert.Equal(t, http.StatusBadRequest, errors.StatusCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestValidateStatusRequest(t *testing.T) {
	got, err := ValidateStatusRequest(httptest.NewRequest("GET", "/api/status?path=docs&ignored=true", nil))
	require.NoError(t, err)
	assert.Equal(t, StatusRequest{Pathspec: []string{"docs"}, Ignored: true}, *got)

	_, err = ValidateStatusRequest(httptest.NewRequest("GET", "/api/status?ignored=sometimes", nil))
	assert.Equal(t, http.StatusBadRequest, errors.StatusCode(err))
}
