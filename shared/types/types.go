// Package types holds the JSON views shared by the HTTP API and its client.
package types

// FileView is one delta of a diff list.
type FileView struct {
	Status     string     `json:"status"`
	OldPath    string     `json:"old_path,omitempty"`
	NewPath    string     `json:"new_path,omitempty"`
	OldID      string     `json:"old_id,omitempty"`
	NewID      string     `json:"new_id,omitempty"`
	OldMode    string     `json:"old_mode,omitempty"`
	NewMode    string     `json:"new_mode,omitempty"`
	Binary     bool       `json:"binary"`
	Similarity int        `json:"similarity,omitempty"`
	Additions  int        `json:"additions,omitempty"`
	Deletions  int        `json:"deletions,omitempty"`
	Hunks      []HunkView `json:"hunks,omitempty"`
}

// HunkView represents a section of changes
type HunkView struct {
	Header   string     `json:"header"`
	OldStart int        `json:"old_start"`
	OldLines int        `json:"old_lines"`
	NewStart int        `json:"new_start"`
	NewLines int        `json:"new_lines"`
	Lines    []LineView `json:"lines"`
}

// LineView is one diff line. Origin is the single origin character and
// Content keeps the trailing newline when the file has one.
type LineView struct {
	Origin    string `json:"origin"`
	Content   string `json:"content"`
	OldLineno int    `json:"old_lineno"`
	NewLineno int    `json:"new_lineno"`
}

type Summary struct {
	Files     int `json:"files"`
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

type DiffResponse struct {
	ID      string     `json:"id"`
	Old     string     `json:"old"`
	New     string     `json:"new"`
	Files   []FileView `json:"files"`
	Summary *Summary   `json:"summary,omitempty"`
}

type StatusEntry struct {
	Path   string `json:"path"`
	Status string `json:"status"`
}

// StatusResponse mirrors `git status`: staged changes against HEAD,
// unstaged changes against the index and untracked paths.
type StatusResponse struct {
	Head      string        `json:"head"`
	Staged    []StatusEntry `json:"staged"`
	Unstaged  []StatusEntry `json:"unstaged"`
	Untracked []string      `json:"untracked"`
	Ignored   []string      `json:"ignored,omitempty"`
}

type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
