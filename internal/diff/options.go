package diff

import (
	"tigdiff/internal/errors"
	"tigdiff/internal/object"

	"go.uber.org/zap"
)

// Flag selects diff behaviors. Flags combine with bitwise or.
type Flag uint32

const Normal Flag = 0

const (
	Reverse Flag = 1 << iota
	ForceText
	IgnoreWhitespace
	IgnoreWhitespaceChange
	IgnoreWhitespaceEOL
	IgnoreSubmodules
	Patience
	IncludeIgnored
	IncludeUntracked
	IncludeUnmodified
	RecurseUntrackedDirs
	DisablePathspecMatch
)

func (f Flag) Has(flag Flag) bool { return f&flag == flag }

const (
	DefaultContextLines = 3
	DefaultOldPrefix    = "a"
	DefaultNewPrefix    = "b"
	DefaultMaxSize      = 512 * 1024 * 1024
)

// Options controls how a diff list is built and how its text diffs are
// computed. Zero values select the defaults.
type Options struct {
	Flags          Flag
	ContextLines   int
	InterhunkLines int
	OldPrefix      string
	NewPrefix      string
	Pathspec       []string
	MaxSize        int64

	// Logger receives debug output from list construction and traversal.
	Logger *zap.Logger
}

// DefaultOptions returns the options used when nil is passed.
func DefaultOptions() Options {
	return Options{
		ContextLines: DefaultContextLines,
		OldPrefix:    DefaultOldPrefix,
		NewPrefix:    DefaultNewPrefix,
		MaxSize:      DefaultMaxSize,
		Logger:       zap.NewNop(),
	}
}

// normalizeOptions validates opts and fills in defaults. The caller's value
// is never modified.
func normalizeOptions(opts *Options) (Options, error) {
	if opts == nil {
		return DefaultOptions(), nil
	}

	o := *opts
	if o.ContextLines < 0 {
		return o, errors.ValidationError("context lines cannot be negative", o.ContextLines)
	}
	if o.InterhunkLines < 0 {
		return o, errors.ValidationError("interhunk lines cannot be negative", o.InterhunkLines)
	}
	if o.MaxSize < 0 {
		return o, errors.ValidationError("max size cannot be negative", o.MaxSize)
	}

	if o.ContextLines == 0 {
		o.ContextLines = DefaultContextLines
	}
	if o.OldPrefix == "" {
		o.OldPrefix = DefaultOldPrefix
	}
	if o.NewPrefix == "" {
		o.NewPrefix = DefaultNewPrefix
	}
	if o.MaxSize == 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	o.Pathspec = append([]string(nil), o.Pathspec...)

	return o, nil
}

func (o Options) workdirOptions() object.WorkdirOptions {
	return object.WorkdirOptions{
		IncludeIgnored:       o.Flags.Has(IncludeIgnored),
		IncludeUntracked:     o.Flags.Has(IncludeUntracked),
		RecurseUntrackedDirs: o.Flags.Has(RecurseUntrackedDirs),
	}
}
