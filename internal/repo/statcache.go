package repo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"tigdiff/internal/errors"
	"tigdiff/internal/object"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

type statEntry struct {
	size     int64
	modTime  time.Time
	mode     fs.FileMode
	id       object.ID
	recorded time.Time
}

// StatCache remembers the content ID of working directory files by path,
// valid as long as size, mode and modification time are unchanged.
type StatCache struct {
	entries *lru.Cache[string, statEntry]
	logger  *zap.Logger
}

func NewStatCache(size int, logger *zap.Logger) (*StatCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := lru.New[string, statEntry](size)
	if err != nil {
		return nil, errors.AllocationError(fmt.Sprintf("creating stat cache of %d entries: %v", size, err))
	}
	return &StatCache{entries: entries, logger: logger}, nil
}

// Lookup returns the cached ID for rel when info still matches. Entries
// recorded in the same second the file was last written are not trusted,
// since a later write in that second could keep the same mtime.
func (c *StatCache) Lookup(rel string, info fs.FileInfo) (object.ID, bool) {
	e, ok := c.entries.Get(rel)
	if !ok {
		return object.ZeroID, false
	}
	if e.size != info.Size() || e.mode != info.Mode() || !e.modTime.Equal(info.ModTime()) {
		return object.ZeroID, false
	}
	if !e.modTime.Before(e.recorded.Truncate(time.Second)) {
		return object.ZeroID, false
	}
	return e.id, true
}

func (c *StatCache) Store(rel string, info fs.FileInfo, id object.ID) {
	c.entries.Add(rel, statEntry{
		size:     info.Size(),
		modTime:  info.ModTime(),
		mode:     info.Mode(),
		id:       id,
		recorded: time.Now(),
	})
}

func (c *StatCache) Invalidate(rel string) {
	c.entries.Remove(rel)
}

func (c *StatCache) Contains(rel string) bool {
	return c.entries.Contains(rel)
}

func (c *StatCache) Len() int {
	return c.entries.Len()
}

// Watch drops cache entries as files under root change. The watches are in
// place when Watch returns; events are handled until ctx is done.
func (c *StatCache) Watch(ctx context.Context, root string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return err
	}

	go c.watchLoop(ctx, watcher, root)
	return nil
}

// watchLoop processes filesystem events
func (c *StatCache) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, root string) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			c.handleFSEvent(watcher, root, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (c *StatCache) handleFSEvent(watcher *fsnotify.Watcher, root string, event fsnotify.Event) {
	rel, err := filepath.Rel(root, event.Name)
	if err != nil {
		c.logger.Error("getting relative path", zap.Error(err))
		return
	}
	rel = filepath.ToSlash(rel)

	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() && !skipDir(info.Name()) {
			if err := watcher.Add(event.Name); err != nil {
				c.logger.Error("adding new directory to watcher", zap.Error(err))
			}
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod|fsnotify.Create) != 0 {
		c.Invalidate(rel)
		c.logger.Debug("stat cache invalidated", zap.String("path", rel), zap.Stringer("op", event.Op))
	}
}
