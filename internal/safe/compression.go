// internal/safe/compression.go
package safe

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Blobs whose leading bytes match one of these are already compressed and
// stored as they are.
var compressedMagic = [][]byte{
	{0x28, 0xB5, 0x2F, 0xFD}, // zstd
	{0x1F, 0x8B},             // gzip
	{'P', 'K', 0x03, 0x04},   // zip, docx, jar
	{0x89, 'P', 'N', 'G'},
	{0xFF, 0xD8, 0xFF}, // jpeg
	{'B', 'Z', 'h'},
	{0xFD, '7', 'z', 'X', 'Z'},
}

type CompressionOptions struct {
	// Blobs smaller than MinSize are stored raw.
	MinSize int
	// zstd level, 1 (fastest) to 4 (best).
	Level int
	// Names with these extensions are stored raw whatever their content.
	SkipExtensions []string
}

func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		MinSize:        512,
		Level:          2,
		SkipExtensions: []string{".mp3", ".mp4", ".avi", ".mkv", ".webp", ".gif", ".pdf"},
	}
}

// codec compresses blob bodies. EncodeAll and DecodeAll may be called
// concurrently, so one encoder and one decoder are shared.
type codec struct {
	opts CompressionOptions
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

func newCodec(opts CompressionOptions) (*codec, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	return &codec{opts: opts, enc: enc, dec: dec}, nil
}

func (c *codec) worthCompressing(name string, content []byte) bool {
	if len(content) < c.opts.MinSize {
		return false
	}
	for _, magic := range compressedMagic {
		if bytes.HasPrefix(content, magic) {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, skip := range c.opts.SkipExtensions {
		if ext == skip {
			return false
		}
	}
	return true
}

// encode reports whether the returned body is compressed. Content that
// does not shrink is returned unchanged.
func (c *codec) encode(name string, content []byte) ([]byte, bool) {
	if !c.worthCompressing(name, content) {
		return content, false
	}
	out := c.enc.EncodeAll(content, make([]byte, 0, len(content)/2))
	if len(out) >= len(content) {
		return content, false
	}
	return out, true
}

func (c *codec) decode(body []byte) ([]byte, error) {
	return c.dec.DecodeAll(body, make([]byte, 0, 2*len(body)))
}

func (c *codec) close() {
	c.enc.Close()
	c.dec.Close()
}
