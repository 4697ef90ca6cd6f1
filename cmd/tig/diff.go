package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"tigdiff/internal/config"
	"tigdiff/internal/diff"
	"tigdiff/internal/errors"
	"tigdiff/internal/object"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// maxStatBar is the widest +/- bar --stat draws.
const maxStatBar = 50

type diffFlags struct {
	cached     bool
	noIndex    bool
	reverse    bool
	stat       bool
	nameStatus bool
	patch      bool
}

// addDiffFlags registers the flags shared by diff and diff-files. The
// whitespace, context and color flags are read back through the config.
func addDiffFlags(cmd *cobra.Command, f *diffFlags) {
	fs := cmd.Flags()
	fs.IntP("unified", "U", diff.DefaultContextLines, "Lines of context around each change")
	fs.Int("inter-hunk-context", 0, "Join hunks separated by up to this many unchanged lines")
	fs.Bool("patience", false, "Use the patience diff algorithm")
	fs.BoolP("ignore-all-space", "w", false, "Ignore all whitespace when comparing lines")
	fs.BoolP("ignore-space-change", "b", false, "Ignore changes in the amount of whitespace")
	fs.Bool("ignore-space-at-eol", false, "Ignore whitespace at the end of lines")
	fs.String("color", "auto", "Colorize output (auto, always, never)")
	fs.BoolVarP(&f.reverse, "reverse", "R", false, "Swap the two sides")
	fs.BoolVar(&f.stat, "stat", false, "Show a per-file summary of changed lines")
	fs.BoolVar(&f.nameStatus, "name-status", false, "Show only the status and name of each changed file")
}

func newDiffCmd(o *options) *cobra.Command {
	f := &diffFlags{}
	cmd := &cobra.Command{
		Use:   "diff [<tree> [<tree>]] [--] [<path>...]",
		Short: "Show changes between trees, the index and the working directory",
		Long: `Without trees, compare the working directory with the index.
With --cached, compare the index with HEAD or the given tree.
With one tree, compare the working directory with it, through the index.
With two trees, compare them with each other.

With --no-index, compare two files on disk; no repository is needed.

A tree is HEAD or a full tree ID.`,
		Example: `  tig diff
  tig diff --cached
  tig diff HEAD -- src
  tig diff --stat <tree> HEAD
  tig diff --no-index old.txt new.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.noIndex {
				return o.diffFiles(cmd, f, args)
			}

			s, err := o.open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			revs, paths := splitRevisions(args, cmd.ArgsLenAtDash())
			opts, err := s.diffOptions(o, paths)
			if err != nil {
				return err
			}
			if f.reverse {
				opts.Flags |= diff.Reverse
			}

			list, err := s.compare(revs, f.cached, &opts)
			if err != nil {
				return err
			}
			defer list.Close()

			return render(cmd, list, f)
		},
	}
	cmd.Flags().BoolVar(&f.cached, "cached", false, "Compare the index instead of the working directory")
	cmd.Flags().BoolVar(&f.noIndex, "no-index", false, "Compare two files outside any repository")
	addDiffFlags(cmd, f)
	return cmd
}

func newDiffFilesCmd(o *options) *cobra.Command {
	f := &diffFlags{}
	cmd := &cobra.Command{
		Use:   "diff-files [<path>...]",
		Short: "Compare the working directory with the index",
		Long: `List the files whose working copy differs from the index, in name-status
form. With -p, print the patch instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			opts, err := s.diffOptions(o, args)
			if err != nil {
				return err
			}
			if f.reverse {
				opts.Flags |= diff.Reverse
			}

			list, err := diff.WorkdirToIndex(s.repo, &opts)
			if err != nil {
				return err
			}
			defer list.Close()

			if !f.patch && !f.stat {
				f.nameStatus = true
			}
			return render(cmd, list, f)
		},
	}
	cmd.Flags().BoolVarP(&f.patch, "patch", "p", false, "Print the patch")
	addDiffFlags(cmd, f)
	return cmd
}

// diffOptions applies the configured defaults and turns command line paths
// into a pathspec relative to the repository root.
func (s *session) diffOptions(o *options, paths []string) (diff.Options, error) {
	opts := s.cfg.DiffOptions()
	opts.Logger = s.logger.Logger

	for _, p := range paths {
		abs, err := o.abs(p)
		if err != nil {
			return opts, err
		}
		rel, err := s.repo.RelPath(abs)
		if err != nil {
			return opts, err
		}
		if rel == "" {
			rel = "."
		}
		opts.Pathspec = append(opts.Pathspec, rel)
	}
	return opts, nil
}

func isRevision(arg string) bool {
	if arg == "HEAD" {
		return true
	}
	_, err := object.ParseID(arg)
	return err == nil
}

// splitRevisions separates trees from paths. Everything before "--" is a
// tree; without "--", leading arguments that look like trees are.
func splitRevisions(args []string, dash int) ([]string, []string) {
	if dash >= 0 {
		return args[:dash], args[dash:]
	}
	n := 0
	for n < len(args) && n < 2 && isRevision(args[n]) {
		n++
	}
	return args[:n], args[n:]
}

func (s *session) resolve(rev string) (object.ID, error) {
	if rev == "HEAD" {
		return s.repo.Head()
	}
	id, err := object.ParseID(rev)
	if err != nil {
		return object.ZeroID, errors.ValidationError("not a tree", rev)
	}
	return id, nil
}

func (s *session) compare(revs []string, cached bool, opts *diff.Options) (*diff.List, error) {
	ids := make([]object.ID, len(revs))
	for i, rev := range revs {
		id, err := s.resolve(rev)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	switch len(ids) {
	case 0:
		if !cached {
			return diff.WorkdirToIndex(s.repo, opts)
		}
		head, err := s.repo.Head()
		if err != nil {
			return nil, err
		}
		return diff.IndexToTree(s.repo, opts, head)
	case 1:
		if cached {
			return diff.IndexToTree(s.repo, opts, ids[0])
		}
		return diff.WorkdirToTreeWithIndex(s.repo, opts, ids[0])
	case 2:
		if cached {
			return nil, errors.ValidationError("--cached takes at most one tree", revs)
		}
		return diff.TreeToTree(s.repo, opts, ids[0], ids[1])
	}
	return nil, errors.ValidationError("too many trees", revs)
}

func render(cmd *cobra.Command, list *diff.List, f *diffFlags) error {
	out := cmd.OutOrStdout()
	switch {
	case f.nameStatus:
		return list.WriteCompact(out)
	case f.stat:
		stats, err := list.Stats(cmd.Context(), runtime.NumCPU())
		if err != nil {
			return err
		}
		return writeStat(out, stats)
	}
	return writeColoredPatch(out, list)
}

// patchColors colors patch lines by origin.
type patchColors struct {
	meta, frag, add, del *color.Color
}

func newPatchColors() *patchColors {
	return &patchColors{
		meta: color.New(color.Bold),
		frag: color.New(color.FgCyan),
		add:  color.New(color.FgGreen),
		del:  color.New(color.FgRed),
	}
}

// writeLine writes ln as WritePatch would. Color codes never wrap a newline.
func (pc *patchColors) writeLine(out io.Writer, ln *diff.Line) error {
	var c *color.Color
	switch ln.Origin {
	case diff.OriginFileHeader, diff.OriginBinary:
		c = pc.meta
	case diff.OriginHunkHeader:
		c = pc.frag
	case diff.OriginAddition, diff.OriginAddEOFNL:
		c = pc.add
	case diff.OriginDeletion, diff.OriginDelEOFNL:
		c = pc.del
	}

	text := string(ln.Patch())
	if c == nil {
		_, err := io.WriteString(out, text)
		return err
	}
	for _, part := range strings.SplitAfter(text, "\n") {
		body := strings.TrimSuffix(part, "\n")
		if body != "" {
			if _, err := c.Fprint(out, body); err != nil {
				return err
			}
		}
		if len(body) < len(part) {
			if _, err := io.WriteString(out, "\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeColoredPatch writes the same text as WritePatch, colored by line
// origin.
func writeColoredPatch(out io.Writer, list *diff.List) error {
	pc := newPatchColors()
	var werr error
	err := list.PrintPatch(func(_ *diff.Delta, _ *diff.Hunk, ln *diff.Line) error {
		werr = pc.writeLine(out, ln)
		return werr
	})
	if werr != nil {
		return werr
	}
	return err
}

// diffFiles compares two files on disk. Options come from the config found
// in the working directory, if any, and the command line.
func (o *options) diffFiles(cmd *cobra.Command, f *diffFlags, args []string) error {
	if len(args) != 2 {
		return errors.ValidationError("--no-index compares exactly two files", args)
	}
	if f.cached || f.stat || f.nameStatus {
		return errors.ValidationError("--no-index only prints a patch", nil)
	}

	dir, err := o.workDir()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}
	cfg, err := config.Load(o.configFile, dir, cmd.Flags())
	if err != nil {
		return err
	}
	applyColor(cfg.Diff.Color)

	opts := cfg.DiffOptions()
	if f.reverse {
		opts.Flags |= diff.Reverse
	}

	blobs := make([]*object.Blob, len(args))
	for i, name := range args {
		p, err := o.abs(name)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		blobs[i] = object.NewBlob(data)
	}

	oldName, newName := filepath.ToSlash(args[0]), filepath.ToSlash(args[1])
	if f.reverse {
		oldName, newName = newName, oldName
	}
	return writeBlobPatch(cmd.OutOrStdout(), oldName, newName, blobs[0], blobs[1], &opts)
}

// writeBlobPatch prints the patch between two blobs under the given names.
// Identical blobs print nothing.
func writeBlobPatch(out io.Writer, oldName, newName string, oldBlob, newBlob *object.Blob, opts *diff.Options) error {
	pc := newPatchColors()
	header := fmt.Sprintf("diff --git a/%s b/%s\n", oldName, newName)

	var (
		werr   error
		headed bool
	)
	write := func(origin diff.Origin, text string) error {
		werr = pc.writeLine(out, &diff.Line{Origin: origin, Content: []byte(text)})
		return werr
	}

	err := diff.Blobs(oldBlob, newBlob, opts,
		func(d *diff.Delta, _ float64) error {
			if !d.Binary || d.Status == diff.Unmodified {
				return nil
			}
			if err := write(diff.OriginFileHeader, header); err != nil {
				return err
			}
			return write(diff.OriginBinary, fmt.Sprintf("Binary files a/%s and b/%s differ\n", oldName, newName))
		},
		func(_ *diff.Delta, h *diff.Hunk) error {
			if !headed {
				headed = true
				if err := write(diff.OriginFileHeader, header+"--- a/"+oldName+"\n+++ b/"+newName+"\n"); err != nil {
					return err
				}
			}
			return write(diff.OriginHunkHeader, h.Header)
		},
		func(_ *diff.Delta, _ *diff.Hunk, ln *diff.Line) error {
			werr = pc.writeLine(out, ln)
			return werr
		},
	)
	if werr != nil {
		return werr
	}
	return err
}

// writeStat prints a `git diff --stat` style summary.
func writeStat(out io.Writer, stats []diff.FileStats) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	var (
		files, additions, deletions int
		nameWidth, countWidth       int
		maxChanged                  int
	)
	for _, st := range stats {
		if st.Status == diff.Unmodified {
			continue
		}
		nameWidth = max(nameWidth, len(st.Path))
		countWidth = max(countWidth, len(fmt.Sprint(st.Additions+st.Deletions)))
		maxChanged = max(maxChanged, st.Additions+st.Deletions)
	}

	for _, st := range stats {
		if st.Status == diff.Unmodified {
			continue
		}
		files++
		if st.Binary {
			if _, err := fmt.Fprintf(out, " %-*s | Bin\n", nameWidth, st.Path); err != nil {
				return err
			}
			continue
		}
		additions += st.Additions
		deletions += st.Deletions

		plus, minus := st.Additions, st.Deletions
		if maxChanged > maxStatBar {
			plus = scaleBar(plus, maxChanged)
			minus = scaleBar(minus, maxChanged)
		}
		_, err := fmt.Fprintf(out, " %-*s | %*d %s%s\n",
			nameWidth, st.Path,
			countWidth, st.Additions+st.Deletions,
			green(strings.Repeat("+", plus)),
			red(strings.Repeat("-", minus)),
		)
		if err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(out, " %s changed, %s(+), %s(-)\n",
		plural(files, "file"), plural(additions, "insertion"), plural(deletions, "deletion"))
	return err
}

// scaleBar shrinks n so the widest bar fits maxStatBar, keeping non-zero
// counts visible.
func scaleBar(n, widest int) int {
	if n == 0 {
		return 0
	}
	return max(1, n*maxStatBar/widest)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
