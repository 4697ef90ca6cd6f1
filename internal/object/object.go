// Package object defines the content-addressed identifiers, file modes and
// snapshot entries shared by the repository adapters and the diff engine.
package object

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ID is the SHA-256 digest of a piece of content.
type ID [sha256.Size]byte

// ZeroID marks an absent side of a delta.
var ZeroID ID

// Hash returns the ID of content.
func Hash(content []byte) ID {
	return ID(sha256.Sum256(content))
}

// ParseID decodes a 64 character hex string.
func ParseID(s string) (ID, error) {
	var id ID
	if len(s) != 2*len(id) {
		return id, fmt.Errorf("invalid object id %q: want %d hex characters", s, 2*len(id))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return id, nil
}

func (id ID) IsZero() bool { return id == ZeroID }

func (id ID) String() string { return hex.EncodeToString(id[:]) }

// Short returns the first n hex characters of the ID.
func (id ID) Short(n int) string {
	s := id.String()
	if n <= 0 || n > len(s) {
		return s
	}
	return s[:n]
}

func (id ID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Mode is a git compatible file mode.
type Mode uint32

const (
	ModeUnreadable Mode = 0
	ModeTree       Mode = 0o040000
	ModeFile       Mode = 0o100644
	ModeExecutable Mode = 0o100755
	ModeSymlink    Mode = 0o120000
	ModeSubmodule  Mode = 0o160000
)

func (m Mode) IsTree() bool       { return m&0o170000 == ModeTree }
func (m Mode) IsSubmodule() bool  { return m&0o170000 == ModeSubmodule }
func (m Mode) IsSymlink() bool    { return m&0o170000 == ModeSymlink }
func (m Mode) IsExecutable() bool { return m == ModeExecutable }

func (m Mode) String() string { return fmt.Sprintf("%06o", uint32(m)) }

// Kind classifies an entry yielded by a working directory scan.
type Kind uint8

const (
	KindTracked Kind = iota
	KindUntracked
	KindIgnored
)

// BinaryHint is the adapter's opinion about an entry's content.
type BinaryHint uint8

const (
	BinaryUnknown BinaryHint = iota
	BinaryYes
	BinaryNo
)

// Entry is one path of a snapshot.
type Entry struct {
	Path   string     `json:"path"`
	Mode   Mode       `json:"mode"`
	Size   int64      `json:"size"`
	ID     ID         `json:"id"`
	Kind   Kind       `json:"kind,omitempty"`
	Binary BinaryHint `json:"binary,omitempty"`
}

// Source yields the entries of one snapshot ordered by path (byte-wise) and
// loads the content of any entry it yielded.
type Source interface {
	Entries() ([]Entry, error)
	Load(e Entry) ([]byte, error)
}

// WorkdirOptions controls which working directory entries a scan yields.
type WorkdirOptions struct {
	IncludeIgnored       bool
	IncludeUntracked     bool
	RecurseUntrackedDirs bool
}

// Blob is raw content with its ID. A nil *Blob is an absent side.
type Blob struct {
	ID   ID
	Data []byte
}

// NewBlob hashes data into a Blob.
func NewBlob(data []byte) *Blob {
	return &Blob{ID: Hash(data), Data: data}
}
