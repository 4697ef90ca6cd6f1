// cmd/tig/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tigdiff/internal/api"
	"tigdiff/internal/config"
	"tigdiff/internal/diff"
	"tigdiff/internal/logging"
	"tigdiff/internal/repo"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	dir        string
	configFile string
	verbose    bool
}

// session is an open repository with the configuration that applies to it.
type session struct {
	repo   *repo.Repository
	cfg    *config.Config
	logger *logging.Logger
}

func (s *session) Close() error {
	s.logger.Sync()
	return s.repo.Close()
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "tig",
		Short: "Tig compares trees, the index and the working directory",
		Long: `Tig keeps snapshots of a working directory in a local object database
and shows what changed between any two of them: stored trees, the staging
index and the files on disk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.dir, "dir", "C", "", "Run as if tig was started in this directory")
	pf.StringVar(&opts.configFile, "config", "", "Config file (default: tig.yaml in the repository or its .tig directory)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Write debug logs to stderr")
	pf.String("log-level", "info", "Log level for the server (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCmd(opts),
		newAddCmd(opts),
		newRmCmd(opts),
		newWriteTreeCmd(opts),
		newResetCmd(opts),
		newFsckCmd(opts),
		newStatusCmd(opts),
		newDiffCmd(opts),
		newDiffFilesCmd(opts),
		newServeCmd(opts),
	)
	return rootCmd
}

func (o *options) workDir() (string, error) {
	if o.dir != "" {
		return filepath.Abs(o.dir)
	}
	return os.Getwd()
}

// abs resolves a command line path against the working directory.
func (o *options) abs(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := o.workDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

func (o *options) absAll(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := o.abs(p)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// open finds the repository and loads its configuration. CLI commands log
// only with --verbose; the server logs as its environment says.
func (o *options) open(cmd *cobra.Command, server bool) (*session, error) {
	dir, err := o.workDir()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}
	root, err := repo.FindRoot(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(o.configFile, root, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := logging.Nop()
	switch {
	case server:
		logger, err = cfg.NewLogger()
	case o.verbose:
		logger, err = logging.NewDevelopment("debug")
	}
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	r, err := repo.Open(root, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	applyColor(cfg.Diff.Color)
	return &session{repo: r, cfg: cfg, logger: logger}, nil
}

// applyColor overrides terminal detection; "auto" leaves it alone.
func applyColor(mode string) {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	}
}

func newInitCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new Tig repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := o.workDir()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			if len(args) == 1 {
				if dir, err = o.abs(args[0]); err != nil {
					return err
				}
			}

			if err := repo.Init(dir); err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Initialized empty Tig repository in", filepath.Join(dir, repo.DirName))
			return nil
		},
	}
}

func newAddCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Stage files from the working directory",
		Long: `Stage the content of the given files. Directories are added recursively,
skipping ignored files; tracked files missing from disk are unstaged.`,
		Example: `  tig add main.go
  tig add .`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			paths, err := o.absAll(args)
			if err != nil {
				return err
			}
			if err := s.repo.AddPaths(paths...); err != nil {
				return fmt.Errorf("adding paths: %w", err)
			}
			return nil
		},
	}
}

func newRmCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Unstage paths, keeping the files on disk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			paths, err := o.absAll(args)
			if err != nil {
				return err
			}
			if err := s.repo.RemovePaths(paths...); err != nil {
				return fmt.Errorf("removing paths: %w", err)
			}
			for _, p := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "rm '%s'\n", p)
			}
			return nil
		},
	}
}

func newWriteTreeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "write-tree",
		Short: "Store the index as a tree and point HEAD at it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.repo.WriteTreeFromIndex()
			if err != nil {
				return fmt.Errorf("writing tree: %w", err)
			}
			if err := s.repo.SetHead(id); err != nil {
				return fmt.Errorf("updating HEAD: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newResetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [<tree>]",
		Short: "Make the index match a tree, HEAD by default",
		Long: `Replace every staged entry with the entries of the given tree. Files in
the working directory are not touched.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			tree, err := s.resolve(rev)
			if err != nil {
				return err
			}
			if err := s.repo.ResetIndex(tree); err != nil {
				return fmt.Errorf("resetting index: %w", err)
			}
			return nil
		},
	}
}

func newFsckCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fsck",
		Short: "Verify the blobs referenced by stored trees and the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			damaged, err := s.repo.Check()
			if err != nil {
				return err
			}
			for _, d := range damaged {
				fmt.Fprintf(cmd.OutOrStdout(), "damaged blob %s %s: %v\n", d.ID.Short(12), d.Path, d.Err)
			}
			if len(damaged) > 0 {
				return fmt.Errorf("%d damaged blobs", len(damaged))
			}
			return nil
		},
	}
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status [<path>...]",
		Short: "Show working tree status",
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
			opts.Flags |= diff.IncludeUntracked

			head, err := s.repo.Head()
			if err != nil {
				return err
			}
			staged, err := diff.IndexToTree(s.repo, &opts, head)
			if err != nil {
				return fmt.Errorf("comparing index with HEAD: %w", err)
			}
			defer staged.Close()
			unstaged, err := diff.WorkdirToIndex(s.repo, &opts)
			if err != nil {
				return fmt.Errorf("comparing working directory with index: %w", err)
			}
			defer unstaged.Close()

			printStatus(cmd.OutOrStdout(), staged, unstaged)
			return nil
		},
	}
}

func printStatus(out io.Writer, staged, unstaged *diff.List) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	var changed, untracked []diff.Delta
	for _, d := range unstaged.Deltas() {
		if d.Status == diff.Untracked {
			untracked = append(untracked, d)
		} else {
			changed = append(changed, d)
		}
	}

	if staged.Len() == 0 && len(changed) == 0 && len(untracked) == 0 {
		fmt.Fprintln(out, "No changes (working tree clean)")
		return
	}

	if staged.Len() > 0 {
		fmt.Fprintln(out, "Changes staged for the next tree:")
		fmt.Fprintln(out, "  (use \"tig write-tree\" to record them)")
		for _, d := range staged.Deltas() {
			fmt.Fprintf(out, "\t%s\n", green(fmt.Sprintf("%-11s %s", d.Status.String()+":", d.Path())))
		}
		fmt.Fprintln(out)
	}

	if len(changed) > 0 {
		fmt.Fprintln(out, "Changes not staged:")
		fmt.Fprintln(out, "  (use \"tig add <file>...\" to stage them)")
		for _, d := range changed {
			fmt.Fprintf(out, "\t%s\n", red(fmt.Sprintf("%-11s %s", d.Status.String()+":", d.Path())))
		}
		fmt.Fprintln(out)
	}

	if len(untracked) > 0 {
		fmt.Fprintln(out, "Untracked files:")
		fmt.Fprintln(out, "  (use \"tig add <file>...\" to track them)")
		for _, d := range untracked {
			fmt.Fprintf(out, "\t%s\n", red(d.Path()))
		}
		fmt.Fprintln(out)
	}
}

func newServeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve diffs and status of the repository over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.repo.Watch(ctx); err != nil {
				s.logger.Warn("file watching disabled", zap.Error(err))
			}

			opts := s.cfg.DiffOptions()
			handler := api.NewServer(s.repo, opts, s.logger)
			addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
			return api.ListenAndServe(ctx, addr, handler, s.logger)
		},
	}
	cmd.Flags().String("host", "localhost", "Address to listen on")
	cmd.Flags().Int("port", 8080, "Port to listen on")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
