package repo

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// memoryDBOptions keeps everything in memory with a single version per key.
func memoryDBOptions() badger.Options {
	return badger.DefaultOptions("").
		WithValueDir("").
		WithDir("").
		WithInMemory(true).
		WithNumVersionsToKeep(1).
		WithNumGoroutines(1).
		WithLogger(nil)
}

// openDB opens the on-disk database, creating its directory if needed.
func openDB(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithLogger(nil) // Disable logging noise

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}
