package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultBufSize is the read size used by ReadChunks when none is given.
const DefaultBufSize = 32 * 1024

// ReadChunks reads r to EOF in chunks of at most bufSize bytes and calls fn
// with each non-empty chunk. The chunk is reused and is only valid until fn
// returns.
//
// It returns nil at io.EOF. Read errors are wrapped with the number of bytes
// read so far; an error from fn is returned as is. The context is checked
// between chunks.
func ReadChunks(ctx context.Context, r io.Reader, bufSize int, fn func(chunk []byte) error) error {
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}
	buf := make([]byte, bufSize)
	var read int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			read += int64(n)
			if ferr := fn(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading at offset %d: %w", read, err)
		}
	}
}

// ScanReader feeds r to s through ReadChunks and calls fn with the global
// offset of every match, in stream order.
func (s *Matcher) ScanReader(ctx context.Context, r io.Reader, bufSize int, fn func(offset int64) error) error {
	return ReadChunks(ctx, r, bufSize, func(chunk []byte) error {
		for _, off := range s.Feed(chunk) {
			if err := fn(off); err != nil {
				return err
			}
		}
		return nil
	})
}
