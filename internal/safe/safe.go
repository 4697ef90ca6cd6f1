// internal/safe/safe.go
package safe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tigdiff/internal/object"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrContentNotFound = errors.New("content not found")
	ErrHashMismatch    = errors.New("content hash mismatch")
)

// binarySniffLen matches the window the diff engine inspects for NUL bytes.
const binarySniffLen = 8000

// ContentMeta stores metadata about stored content
type ContentMeta struct {
	ID         object.ID `json:"id"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	Binary     bool      `json:"binary"`
	CreatedAt  time.Time `json:"created_at"`
	AccessedAt time.Time `json:"accessed_at"`
}

// Safe provides deduplicated content storage. Content lives in files under
// Root, or in the metadata database itself when Root is empty.
type Safe struct {
	root  string
	db    *badger.DB
	cache *lru.Cache[object.ID, []byte]
	codec *codec
	mu    sync.Mutex
}

// Options configures Safe behavior
type Options struct {
	Root        string // Root directory path, empty keeps content in the database
	CacheSize   int    // Number of items to cache
	Compression CompressionOptions
}

// New creates a new Safe instance
func New(db *badger.DB, opts Options) (*Safe, error) {
	if opts.Root != "" {
		if err := os.MkdirAll(opts.Root, 0755); err != nil {
			return nil, fmt.Errorf("creating root directory: %w", err)
		}
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.Compression.Level == 0 {
		opts.Compression = DefaultCompressionOptions()
	}

	cache, err := lru.New[object.ID, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	c, err := newCodec(opts.Compression)
	if err != nil {
		return nil, err
	}

	return &Safe{
		root:  opts.Root,
		db:    db,
		cache: cache,
		codec: c,
	}, nil
}

// Close releases the compression encoders. The database is owned by the
// caller.
func (s *Safe) Close() {
	s.codec.close()
}

// Store saves content and returns its ID. Content already in the safe is
// not written again. name is only used to decide whether the content is
// worth compressing.
func (s *Safe) Store(name string, content []byte) (object.ID, error) {
	if content == nil {
		content = []byte{}
	}
	id := object.Hash(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.Exists(id)
	if err != nil {
		return id, fmt.Errorf("checking existence: %w", err)
	}
	if exists {
		return id, nil
	}

	stored, compressed := s.codec.encode(name, content)
	if err := s.writeContent(id, stored); err != nil {
		return id, err
	}

	now := time.Now()
	meta := ContentMeta{
		ID:         id,
		Size:       int64(len(content)),
		Compressed: compressed,
		Binary:     sniffBinary(content),
		CreatedAt:  now,
		AccessedAt: now,
	}
	if err := s.storeMeta(meta); err != nil {
		s.removeContent(id)
		return id, fmt.Errorf("storing metadata: %w", err)
	}

	s.cache.Add(id, content)
	return id, nil
}

// Get retrieves content by ID
func (s *Safe) Get(id object.ID) ([]byte, error) {
	if content, ok := s.cache.Get(id); ok {
		return content, nil
	}

	meta, err := s.getMeta(id)
	if err != nil {
		return nil, fmt.Errorf("getting metadata for %s: %w", id.Short(12), err)
	}

	content, err := s.readContent(id)
	if err != nil {
		return nil, err
	}

	if meta.Compressed {
		content, err = s.codec.decode(content)
		if err != nil {
			return nil, fmt.Errorf("decompressing content: %w", err)
		}
	}

	if object.Hash(content) != id {
		return nil, ErrHashMismatch
	}

	s.cache.Add(id, content)
	return content, nil
}

// Meta returns the stored metadata for id.
func (s *Safe) Meta(id object.ID) (ContentMeta, error) {
	return s.getMeta(id)
}

// Exists checks if content exists
func (s *Safe) Exists(id object.ID) (bool, error) {
	if s.cache.Contains(id) {
		return true, nil
	}

	_, err := s.getMeta(id)
	if errors.Is(err, ErrContentNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Verify checks content integrity, bypassing the cache.
func (s *Safe) Verify(id object.ID) error {
	s.cache.Remove(id)
	_, err := s.Get(id)
	return err
}

func sniffBinary(content []byte) bool {
	if len(content) > binarySniffLen {
		content = content[:binarySniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}

func (s *Safe) contentPath(id object.ID) string {
	hash := id.String()
	return filepath.Join(s.root, hash[:2], hash[2:])
}

func blobKey(id object.ID) []byte {
	return []byte(fmt.Sprintf("blob:%s", id))
}

func metaKey(id object.ID) []byte {
	return []byte(fmt.Sprintf("content:%s", id))
}

func (s *Safe) writeContent(id object.ID, data []byte) error {
	if s.root == "" {
		return s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(blobKey(id), data)
		})
	}

	contentPath := s.contentPath(id)
	if err := os.MkdirAll(filepath.Dir(contentPath), 0755); err != nil {
		return fmt.Errorf("creating content directory: %w", err)
	}
	if err := os.WriteFile(contentPath, data, 0644); err != nil {
		return fmt.Errorf("writing content file: %w", err)
	}
	return nil
}

func (s *Safe) readContent(id object.ID) ([]byte, error) {
	if s.root == "" {
		var data []byte
		err := s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get(blobKey(id))
			if err != nil {
				return err
			}
			data, err = item.ValueCopy(nil)
			return err
		})
		if err == badger.ErrKeyNotFound {
			return nil, ErrContentNotFound
		}
		return data, err
	}

	data, err := os.ReadFile(s.contentPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("reading content: %w", err)
	}
	return data, nil
}

func (s *Safe) removeContent(id object.ID) error {
	if s.root == "" {
		return s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(blobKey(id))
		})
	}
	if err := os.Remove(s.contentPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing content file: %w", err)
	}
	return nil
}

func (s *Safe) storeMeta(meta ContentMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metaKey(meta.ID), data)
	})
}

func (s *Safe) getMeta(id object.ID) (ContentMeta, error) {
	var meta ContentMeta

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrContentNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})

	return meta, err
}
