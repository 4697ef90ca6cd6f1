package repo

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"tigdiff/internal/errors"
)

// defaultIgnores are dependency and build output directories nobody wants to
// see in a status listing.
var defaultIgnores = []string{"node_modules/", "vendor/", "dist/", "build/"}

type ignorePattern struct {
	glob     string
	negate   bool
	dirOnly  bool
	anchored bool
}

// ignoreRules holds the default patterns followed by those of the root
// .tigignore. The last matching pattern decides.
type ignoreRules struct {
	patterns []ignorePattern
}

func loadIgnore(root string) (*ignoreRules, error) {
	ig, err := parseIgnore(defaultIgnores)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if os.IsNotExist(err) {
		return ig, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", IgnoreFile, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", IgnoreFile, err)
	}

	extra, err := parseIgnore(lines)
	if err != nil {
		return nil, err
	}
	ig.patterns = append(ig.patterns, extra.patterns...)
	return ig, nil
}

// parseIgnore reads gitignore style lines: blank lines and "#" comments are
// skipped, "!" negates, a trailing "/" matches directories only and a "/"
// anywhere else anchors the pattern at the root.
func parseIgnore(lines []string) (*ignoreRules, error) {
	ig := &ignoreRules{}
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var p ignorePattern
		if strings.HasPrefix(line, "!") {
			p.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimRight(line, "/")
		}
		if strings.Contains(line, "/") {
			p.anchored = true
			line = strings.TrimPrefix(line, "/")
		}
		if line == "" {
			continue
		}
		if _, err := path.Match(line, ""); err != nil {
			return nil, errors.ValidationError("malformed ignore pattern", line)
		}
		p.glob = line
		ig.patterns = append(ig.patterns, p)
	}
	return ig, nil
}

// Match reports whether the slash path rel is ignored.
func (ig *ignoreRules) Match(rel string, isDir bool) bool {
	ignored := false
	base := path.Base(rel)
	for _, p := range ig.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		target := base
		if p.anchored {
			target = rel
		}
		if ok, _ := path.Match(p.glob, target); ok {
			ignored = !p.negate
		}
	}
	return ignored
}

// Ignored reports whether rel or any directory above it is ignored.
func (ig *ignoreRules) Ignored(rel string, isDir bool) bool {
	for dir := path.Dir(rel); dir != "."; dir = path.Dir(dir) {
		if ig.Match(dir, true) {
			return true
		}
	}
	return ig.Match(rel, isDir)
}
