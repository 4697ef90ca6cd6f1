package diff

import (
	"tigdiff/internal/object"
)

// blobSource serves the content of a single in-memory blob.
type blobSource struct {
	blob *object.Blob
}

func (s blobSource) Entries() ([]object.Entry, error) {
	if s.blob == nil {
		return nil, nil
	}
	return []object.Entry{blobEntry(s.blob)}, nil
}

func (s blobSource) Load(object.Entry) ([]byte, error) {
	if s.blob == nil {
		return nil, nil
	}
	return s.blob.Data, nil
}

func blobEntry(b *object.Blob) object.Entry {
	return object.Entry{ID: b.ID, Size: int64(len(b.Data))}
}

// Blobs diffs two raw blobs without building a List. Either side may be nil.
// Blob sides report mode 0, an empty path, and a zero ID when absent.
func Blobs(oldBlob, newBlob *object.Blob, opts *Options, file FileFunc, hunk HunkFunc, line LineFunc) error {
	o, err := normalizeOptions(opts)
	if err != nil {
		return err
	}

	oldSrc, newSrc := blobSource{oldBlob}, blobSource{newBlob}
	var d Delta
	switch {
	case oldBlob == nil && newBlob == nil:
		d = Delta{Status: Unmodified}
	case oldBlob == nil:
		d = addedDelta(blobEntry(newBlob), newSrc)
	case newBlob == nil:
		d = deletedDelta(blobEntry(oldBlob), oldSrc)
	default:
		d = pairedDelta(blobEntry(oldBlob), blobEntry(newBlob), oldSrc, newSrc)
	}
	if o.Flags.Has(Reverse) {
		d.reverse()
	}

	l := newList(o, []Delta{d})
	defer l.Close()
	return l.Foreach(file, hunk, line)
}
