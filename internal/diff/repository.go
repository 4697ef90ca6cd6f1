package diff

import (
	"fmt"

	"tigdiff/internal/object"
)

// Repository provides the snapshots a diff list can be built from.
type Repository interface {
	TreeSource(id object.ID) (object.Source, error)
	IndexSource() (object.Source, error)
	WorkdirSource(opts object.WorkdirOptions) (object.Source, error)
}

// TreeToTree compares two trees, like `git diff <tree> <tree>`.
func TreeToTree(repo Repository, opts *Options, oldTree, newTree object.ID) (*List, error) {
	return buildFrom(opts, func(o Options) (object.Source, object.Source, error) {
		oldSrc, err := repo.TreeSource(oldTree)
		if err != nil {
			return nil, nil, fmt.Errorf("opening old tree %s: %w", oldTree.Short(12), err)
		}
		newSrc, err := repo.TreeSource(newTree)
		if err != nil {
			return nil, nil, fmt.Errorf("opening new tree %s: %w", newTree.Short(12), err)
		}
		return oldSrc, newSrc, nil
	})
}

// IndexToTree compares a tree with the index, like `git diff --cached <tree>`.
func IndexToTree(repo Repository, opts *Options, oldTree object.ID) (*List, error) {
	return buildFrom(opts, func(o Options) (object.Source, object.Source, error) {
		oldSrc, err := repo.TreeSource(oldTree)
		if err != nil {
			return nil, nil, fmt.Errorf("opening tree %s: %w", oldTree.Short(12), err)
		}
		newSrc, err := repo.IndexSource()
		if err != nil {
			return nil, nil, fmt.Errorf("opening index: %w", err)
		}
		return oldSrc, newSrc, nil
	})
}

// WorkdirToIndex compares the index with the working directory, like
// `git diff`.
func WorkdirToIndex(repo Repository, opts *Options) (*List, error) {
	return buildFrom(opts, func(o Options) (object.Source, object.Source, error) {
		oldSrc, err := repo.IndexSource()
		if err != nil {
			return nil, nil, fmt.Errorf("opening index: %w", err)
		}
		newSrc, err := repo.WorkdirSource(o.workdirOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("scanning working directory: %w", err)
		}
		return oldSrc, newSrc, nil
	})
}

// WorkdirToTree compares a tree directly with the working directory,
// ignoring the index. This is not what `git diff <tree>` shows: a file whose
// deletion is staged but which was put back in the working directory comes
// out Modified here, while merging IndexToTree with WorkdirToIndex reports
// it Deleted.
func WorkdirToTree(repo Repository, opts *Options, oldTree object.ID) (*List, error) {
	return buildFrom(opts, func(o Options) (object.Source, object.Source, error) {
		oldSrc, err := repo.TreeSource(oldTree)
		if err != nil {
			return nil, nil, fmt.Errorf("opening tree %s: %w", oldTree.Short(12), err)
		}
		newSrc, err := repo.WorkdirSource(o.workdirOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("scanning working directory: %w", err)
		}
		return oldSrc, newSrc, nil
	})
}

// WorkdirToTreeWithIndex compares a tree with the working directory through
// the index, like `git diff <tree>`: the tree-to-index list with the
// index-to-workdir list merged onto it.
func WorkdirToTreeWithIndex(repo Repository, opts *Options, oldTree object.ID) (*List, error) {
	staged, err := IndexToTree(repo, opts, oldTree)
	if err != nil {
		return nil, err
	}
	unstaged, err := WorkdirToIndex(repo, opts)
	if err != nil {
		staged.Close()
		return nil, err
	}
	defer unstaged.Close()

	if err := staged.Merge(unstaged); err != nil {
		staged.Close()
		return nil, err
	}
	return staged, nil
}

func buildFrom(opts *Options, open func(Options) (object.Source, object.Source, error)) (*List, error) {
	o, err := normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	oldSrc, newSrc, err := open(o)
	if err != nil {
		return nil, err
	}
	if oldSrc, err = o.filter(oldSrc); err != nil {
		return nil, err
	}
	if newSrc, err = o.filter(newSrc); err != nil {
		return nil, err
	}

	return Build(oldSrc, newSrc, &o)
}
