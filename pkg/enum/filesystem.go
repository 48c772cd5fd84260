package enum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"
)

// IgnoreFileName is read from the root directory, if present, and applied
// with .gitignore syntax.
const IgnoreFileName = ".pktmatchignore"

// FilesystemEnumerator enumerates files below a directory.
type FilesystemEnumerator struct {
	config Config
}

// NewFilesystemEnumerator creates a new filesystem enumerator.
func NewFilesystemEnumerator(config Config) *FilesystemEnumerator {
	return &FilesystemEnumerator{config: config}
}

// Enumerate walks the tree, then opens eligible files in parallel and hands
// each one to callback. The first callback error stops the walk.
func (e *FilesystemEnumerator) Enumerate(ctx context.Context, callback Callback) error {
	ignores, err := e.loadIgnores()
	if err != nil {
		return err
	}

	files, err := e.collect(ctx, ignores)
	if err != nil {
		return err
	}

	workers := e.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return processFile(gctx, path, callback)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// loadIgnores compiles .gitignore and the pktmatch ignore file found at the
// root. Missing files are not an error.
func (e *FilesystemEnumerator) loadIgnores() ([]*gitignore.GitIgnore, error) {
	var ignores []*gitignore.GitIgnore
	for _, name := range []string{".gitignore", IgnoreFileName} {
		path := filepath.Join(e.config.Root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		ignore, err := gitignore.CompileIgnoreFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		ignores = append(ignores, ignore)
	}
	return ignores, nil
}

// collect walks the tree sequentially and returns eligible file paths.
func (e *FilesystemEnumerator) collect(ctx context.Context, ignores []*gitignore.GitIgnore) ([]string, error) {
	var files []string
	err := filepath.WalkDir(e.config.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if path != e.config.Root && !e.config.IncludeHidden && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		switch {
		case d.Type()&os.ModeSymlink != 0:
			if !e.config.FollowSymlinks {
				return nil
			}
			// Dangling links and links to directories are skipped.
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		case !d.Type().IsRegular():
			return nil
		}

		if e.config.MaxFileSize > 0 {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.Size() > e.config.MaxFileSize {
				return nil
			}
		}

		rel, err := filepath.Rel(e.config.Root, path)
		if err != nil {
			return err
		}
		for _, ignore := range ignores {
			if ignore.MatchesPath(rel) {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// processFile opens a single file and invokes the callback.
func processFile(ctx context.Context, path string, callback Callback) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	return callback(ctx, path, f)
}

// isHidden checks if a filename is hidden (starts with .).
// The special entries "." and ".." are NOT considered hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
