package embedded

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/codec"
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/util"
)

// Tar reads and writes tar archives, plain or compressed by any codec.Codec.
//
// Adding and deleting rewrite the whole archive into a temporary file next to it which then replaces the original, so
// unlike GNU tar an added member never duplicates an existing one, and compressed archives can be modified.
type Tar struct {
	name  string
	codec codec.Codec
}

var _ Backend = &Tar{}

// NewTar returns a Tar for the named archive of the given format.
func NewTar(name string, f format.Format) (*Tar, error) {
	c, ok := codec.For(f)
	if !ok {
		return nil, failure.New(failure.Unsupported, "%s is not a tar format", f)
	}

	return &Tar{name: name, codec: c}, nil
}

func (t *Tar) Name() string {
	return "embedded tar"
}

func (t *Tar) Operations() backend.Operations {
	return backend.Add | backend.Delete | backend.Extract | backend.View | backend.Integrity
}

func (t *Tar) List(ctx context.Context, _ string, post func(entry.Entry)) error {
	return t.walk(ctx, func(hdr *tar.Header, tr *tar.Reader) error {
		post(memberOf(hdr, tr).entry())
		return nil
	})
}

func (t *Tar) Extract(ctx context.Context, paths []string, dest string, opts backend.ExtractOptions, post func(entry.Entry)) error {
	if dest == "" {
		return failure.New(failure.NoDestinationDirectory, "no destination directory to extract %s to", t.name)
	}

	sel := newSelection(paths)
	return t.walk(ctx, func(hdr *tar.Header, tr *tar.Reader) error {
		if !sel.matches(hdr.Name) {
			return nil
		}

		m := memberOf(hdr, tr)
		ok, err := extractMember(ctx, dest, m, opts)
		if err != nil {
			return failure.Wrap(failure.NonZeroExit, err, "extract error")
		}
		if ok {
			post(m.entry())
		}

		return nil
	})
}

func (t *Tar) Test(ctx context.Context, _ string, post func(entry.Entry)) error {
	return t.walk(ctx, func(hdr *tar.Header, tr *tar.Reader) error {
		m := memberOf(hdr, tr)
		if err := drain(ctx, m); err != nil {
			return failure.Wrap(failure.UnknownOrCorruptFormat, err, "corrupt member")
		}

		post(m.entry())
		return nil
	})
}

// walk calls fn for every member in archive order.
func (t *Tar) walk(ctx context.Context, fn func(hdr *tar.Header, tr *tar.Reader) error) error {
	file, err := os.Open(t.name)
	if err != nil {
		return failure.Wrap(failure.UnknownOrCorruptFormat, err, `open archive "%s" error`, t.name)
	}
	defer file.Close()

	r, err := codec.NewDecoder(t.codec, file)
	if err != nil {
		return failure.Wrap(failure.UnknownOrCorruptFormat, err, `decompress archive "%s" error`, t.name)
	}
	defer r.Close()

	for f, err := range tarFiles(r) {
		if err != nil {
			return failure.Wrap(failure.UnknownOrCorruptFormat, err, `read archive "%s" error`, t.name)
		}

		if err = ctx.Err(); err != nil {
			return failure.Wrap(failure.Cancelled, err, "cancelled")
		}

		if err = fn(f.Header, f.Reader); err != nil {
			return err
		}
	}

	return nil
}

func memberOf(hdr *tar.Header, tr *tar.Reader) member {
	m := member{
		name:    hdr.Name,
		mode:    hdr.FileInfo().Mode(),
		size:    hdr.Size,
		modTime: hdr.ModTime,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(tr), nil
		},
	}
	if hdr.Typeflag == tar.TypeSymlink {
		m.linkTarget = hdr.Linkname
	}

	return m
}

// pending is a file on disk about to be added.
type pending struct {
	disk string
	name string
	fi   fs.FileInfo
	// skip is set when an existing member is newer.
	skip bool
}

func (t *Tar) Add(ctx context.Context, paths []string, opts backend.AddOptions) error {
	files, err := collect(paths, opts)
	if err != nil {
		return err
	}

	byName := make(map[string]*pending, len(files))
	for _, f := range files {
		byName[strings.TrimSuffix(f.name, "/")] = f
	}

	keep := func(hdr *tar.Header) bool {
		f, ok := byName[strings.TrimSuffix(hdr.Name, "/")]
		if !ok {
			return true
		}

		if opts.UpdateOnlyIfNewer && !f.fi.ModTime().After(hdr.ModTime) {
			f.skip = true
			return true
		}

		return false
	}

	return t.rewrite(ctx, true, keep, func(tw *tarWriter) error {
		for _, f := range files {
			if f.skip {
				continue
			}

			if err := ctx.Err(); err != nil {
				return failure.Wrap(failure.Cancelled, err, "cancelled")
			}

			if err := tw.add(f); err != nil {
				return err
			}
		}

		return nil
	})
}

// collect resolves the files to add and the member names to store them as.
func collect(paths []string, opts backend.AddOptions) ([]*pending, error) {
	stat := os.Stat
	if opts.StoreSymlinks {
		stat = os.Lstat
	}

	dir, rel := backend.Relativise(paths, opts.StoreFullPath)

	var files []*pending
	for _, r := range rel {
		disk := r
		if !filepath.IsAbs(disk) {
			disk = filepath.Join(dir, r)
		}

		name := strings.TrimLeft(filepath.ToSlash(r), "/")
		if opts.JunkDirectoryNames {
			name = filepath.Base(disk)
		}

		fi, err := stat(disk)
		if err != nil {
			return nil, fmt.Errorf(`stat file "%s" error: %w`, disk, err)
		}

		if !fi.IsDir() {
			files = append(files, &pending{disk: disk, name: name, fi: fi})
			continue
		}

		if !opts.JunkDirectoryNames {
			files = append(files, &pending{disk: disk, name: name + "/", fi: fi})
		}
		if !opts.RecurseDirectories {
			continue
		}

		err = filepath.WalkDir(disk, func(p string, d fs.DirEntry, err error) error {
			if err != nil || p == disk {
				return err
			}

			fi, err := stat(p)
			if err != nil {
				return err
			}

			child := path.Join(name, filepath.ToSlash(strings.TrimPrefix(p, disk+string(filepath.Separator))))
			switch {
			case opts.JunkDirectoryNames && fi.IsDir():
				return nil
			case opts.JunkDirectoryNames:
				child = filepath.Base(p)
			case fi.IsDir():
				child += "/"
			}

			files = append(files, &pending{disk: p, name: child, fi: fi})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf(`walk directory "%s" error: %w`, disk, err)
		}
	}

	return files, nil
}

func (t *Tar) Delete(ctx context.Context, paths []string) error {
	sel := newSelection(paths)
	if len(sel) == 0 {
		return fmt.Errorf("no members to delete")
	}

	return t.rewrite(ctx, false, func(hdr *tar.Header) bool {
		return !sel.matches(hdr.Name)
	}, nil)
}

func (t *Tar) Create(ctx context.Context) error {
	if _, err := os.Stat(t.name); err == nil {
		return fmt.Errorf(`archive "%s" already exists`, t.name)
	}

	return t.rewrite(ctx, true, nil, nil)
}

// rewrite writes a new archive into a temporary file next to the original then renames it over the original.
//
// Existing members for which keep returns true are copied first, then add may write new ones. If the archive does
// not exist then it is only created if create is true.
func (t *Tar) rewrite(ctx context.Context, create bool, keep func(hdr *tar.Header) bool, add func(tw *tarWriter) error) (err error) {
	dir, base := filepath.Split(t.name)
	if dir == "" {
		dir = "."
	}

	_, statErr := os.Stat(t.name)
	exists := statErr == nil
	if !exists && !create {
		return failure.Wrap(failure.UnknownOrCorruptFormat, statErr, `archive "%s" does not exist`, t.name)
	}

	stem, ext := util.StemAndExt(base)
	file, err := util.OpenExclFile(dir, "."+stem, ext+".tmp", 0644)
	if err != nil {
		return err
	}

	tmp := file.Name()
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(tmp)
		}
	}()

	tw, err := newTarWriter(file, t.codec)
	if err != nil {
		return fmt.Errorf("create encoder error: %w", err)
	}

	if exists && keep != nil {
		if err = t.walk(ctx, func(hdr *tar.Header, tr *tar.Reader) error {
			if !keep(hdr) {
				return nil
			}

			return tw.copy(hdr, tr)
		}); err != nil {
			return err
		}
	}

	if add != nil {
		if err = add(tw); err != nil {
			return err
		}
	}

	if err = tw.close(); err != nil {
		return fmt.Errorf("close archive writer error: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf(`close file "%s" error: %w`, tmp, err)
	}

	if exists {
		if fi, err := os.Stat(t.name); err == nil {
			_ = os.Chmod(tmp, fi.Mode().Perm())
		}
	}

	if err = os.Rename(tmp, t.name); err != nil {
		return fmt.Errorf(`rename "%s" to "%s" error: %w`, tmp, t.name, err)
	}

	return nil
}

// errNotTar is returned by tarFiles when the content does not look like a tar archive.
var errNotTar = errors.New("not a tar archive")
