// Package enum discovers capture files to scan.
package enum

import (
	"context"
	"io"
)

// Callback receives one file. It may be called concurrently from several
// goroutines; r is valid only until the callback returns.
type Callback func(ctx context.Context, path string, r io.Reader) error

// Enumerator discovers content to scan from a source.
type Enumerator interface {
	Enumerate(ctx context.Context, callback Callback) error
}

// Config for enumeration.
type Config struct {
	// Root is the starting path for enumeration.
	Root string

	// IncludeHidden includes hidden files/directories (starting with .).
	IncludeHidden bool

	// MaxFileSize is the maximum file size to process (0 = no limit).
	MaxFileSize int64

	// FollowSymlinks follows symbolic links to files.
	FollowSymlinks bool

	// Workers is the number of files read in parallel (0 = NumCPU).
	Workers int
}
