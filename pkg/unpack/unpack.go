// Package unpack detects compressed capture files by their magic bytes and
// returns a streaming decompressor, so match offsets refer to the
// decompressed stream.
package unpack

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Format identifies the container detected on a stream.
type Format uint8

const (
	// None means the stream is passed through unchanged.
	None Format = iota
	Gzip
	Zstd
	LZ4
)

var magics = []struct {
	format Format
	magic  []byte
}{
	{Gzip, []byte{0x1f, 0x8b}},
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{LZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
}

// String returns the format name.
func (f Format) String() string {
	switch f {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Format(%d)", f)
	}
}

// Detect reports the format whose magic prefixes header.
func Detect(header []byte) Format {
	for _, m := range magics {
		if bytes.HasPrefix(header, m.magic) {
			return m.format
		}
	}
	return None
}

// NewReader peeks at the start of r and, when it carries a known magic,
// wraps it in the matching decompressor. Other streams are returned as is.
// The caller must Close the result; closing does not close r.
func NewReader(r io.Reader) (io.ReadCloser, Format, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, None, fmt.Errorf("reading header: %w", err)
	}

	switch format := Detect(header); format {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, format, fmt.Errorf("opening gzip stream: %w", err)
		}
		return zr, format, nil
	case Zstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, format, fmt.Errorf("opening zstd stream: %w", err)
		}
		return zstdCloser{zr}, format, nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(br)), format, nil
	default:
		return io.NopCloser(br), None, nil
	}
}

// zstdCloser adapts zstd.Decoder, whose Close has no error result.
type zstdCloser struct {
	*zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.Decoder.Close()
	return nil
}
