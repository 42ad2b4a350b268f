// Package embedded reads and writes archives in-process instead of scraping the output of a command-line tool.
//
// Every method runs to completion on the calling goroutine and reports each entry it visits through a post callback,
// so that package job can run it on a background worker with the same event semantics as a subprocess.
package embedded

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/util"
	"github.com/samber/lo"
)

// Backend is an in-process archive implementation.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Operations returns the operations supported for the archive.
	Operations() backend.Operations
	// List posts every entry of the archive.
	List(ctx context.Context, password string, post func(entry.Entry)) error
	// Extract extracts the given members, or every member if paths is empty, into dest, posting each extracted entry.
	Extract(ctx context.Context, paths []string, dest string, opts backend.ExtractOptions, post func(entry.Entry)) error
	// Test reads every member through, posting each entry.
	Test(ctx context.Context, password string, post func(entry.Entry)) error
	// Add adds files to the archive, creating it if it does not exist.
	Add(ctx context.Context, paths []string, opts backend.AddOptions) error
	// Delete removes the given members from the archive.
	Delete(ctx context.Context, paths []string) error
	// Create creates an empty archive.
	Create(ctx context.Context) error
}

// member is an archived file, independent of the library that read it.
type member struct {
	name       string
	linkTarget string
	mode       fs.FileMode
	size       int64
	modTime    time.Time
	open       func() (io.ReadCloser, error)
}

func (m member) entry() entry.Entry {
	e := entry.NewLink(m.name, m.linkTarget, m.mode.IsDir())
	e.Size = uint64(max(m.size, 0))
	e.Modified = m.modTime
	e.Permissions = m.mode.String()
	return e
}

// selection matches member names against the paths requested by the caller.
//
// An empty selection matches everything. A directory matches itself and everything under it.
type selection []string

func newSelection(paths []string) selection {
	return lo.Map(paths, func(p string, _ int) string {
		return strings.TrimSuffix(filepath.ToSlash(p), "/")
	})
}

func (s selection) matches(name string) bool {
	if len(s) == 0 {
		return true
	}

	name = strings.TrimSuffix(name, "/")
	for _, p := range s {
		if name == p || strings.HasPrefix(name, p+"/") {
			return true
		}
	}

	return false
}

// targetPath returns where a member is extracted to, refusing members that would escape dest.
func targetPath(dest, name string, junk bool) (string, error) {
	name = strings.TrimSuffix(name, "/")
	if junk {
		name = path.Base(name)
	}

	dest = filepath.Clean(dest)
	p := filepath.Join(dest, filepath.FromSlash(name))
	if p != dest && !strings.HasPrefix(p, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf(`member "%s" would be extracted outside "%s"`, name, dest)
	}

	return p, nil
}

// extractMember writes one member under dest.
//
// Returns false if the member was skipped because the file exists and opts.Overwrite is false, or because it is a
// directory and opts.JunkPaths is true.
func extractMember(ctx context.Context, dest string, m member, opts backend.ExtractOptions) (bool, error) {
	if m.mode.IsDir() && opts.JunkPaths {
		return false, nil
	}

	name, err := targetPath(dest, m.name, opts.JunkPaths)
	if err != nil {
		return false, err
	}

	if m.mode.IsDir() {
		if err = os.MkdirAll(name, 0755); err != nil {
			return false, fmt.Errorf(`create directory "%s" error: %w`, name, err)
		}

		return true, nil
	}

	if err = os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return false, fmt.Errorf(`create directory "%s" error: %w`, filepath.Dir(name), err)
	}

	if m.mode&fs.ModeSymlink != 0 {
		if _, err = os.Lstat(name); err == nil {
			if !opts.Overwrite {
				return false, nil
			}
			if err = os.Remove(name); err != nil {
				return false, fmt.Errorf(`remove "%s" error: %w`, name, err)
			}
		}

		if err = os.Symlink(m.linkTarget, name); err != nil {
			return false, fmt.Errorf(`create symlink "%s" error: %w`, name, err)
		}

		return true, nil
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if opts.Overwrite {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(name, flag, m.mode.Perm()|0200)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}

		return false, fmt.Errorf(`create file "%s" error: %w`, name, err)
	}

	src, err := m.open()
	if err != nil {
		_ = f.Close()
		return false, fmt.Errorf(`open member "%s" error: %w`, m.name, err)
	}

	_, err = util.CopyWithContext(ctx, f, src)
	if cerr := util.ChainCloser(f.Close, src.Close)(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(name)
		return false, fmt.Errorf(`extract "%s" error: %w`, m.name, err)
	}

	if !m.modTime.IsZero() {
		_ = os.Chtimes(name, time.Now(), m.modTime)
	}

	return true, nil
}

// drain reads a member through to check its integrity.
func drain(ctx context.Context, m member) error {
	if !m.mode.IsRegular() {
		return nil
	}

	src, err := m.open()
	if err != nil {
		return fmt.Errorf(`open member "%s" error: %w`, m.name, err)
	}
	defer src.Close()

	if _, err = util.CopyWithContext(ctx, io.Discard, src); err != nil {
		return fmt.Errorf(`read member "%s" error: %w`, m.name, err)
	}

	return nil
}
