package embedded

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mholt/archives"
	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/format"
)

// Libarchive reads zip, rar, 7z, and tar archives with github.com/mholt/archives.
//
// Libarchive is read-only.
type Libarchive struct {
	name string
}

var _ Backend = &Libarchive{}

// LibarchiveFormats are the formats Libarchive can read.
var LibarchiveFormats = []format.Format{format.Zip, format.Rar, format.SevenZip, format.Tar, format.TarGz, format.TarBz2, format.TarXz, format.TarZst}

// NewLibarchive returns a Libarchive for the named archive.
func NewLibarchive(name string) *Libarchive {
	return &Libarchive{name: name}
}

func (l *Libarchive) Name() string {
	return "libarchive"
}

func (l *Libarchive) Operations() backend.Operations {
	return backend.Extract | backend.View | backend.Integrity
}

func (l *Libarchive) List(ctx context.Context, password string, post func(entry.Entry)) error {
	return l.walk(ctx, password, func(m member) error {
		post(m.entry())
		return nil
	})
}

func (l *Libarchive) Extract(ctx context.Context, paths []string, dest string, opts backend.ExtractOptions, post func(entry.Entry)) error {
	if dest == "" {
		return failure.New(failure.NoDestinationDirectory, "no destination directory to extract %s to", l.name)
	}

	sel := newSelection(paths)
	return l.walk(ctx, opts.Password, func(m member) error {
		if !sel.matches(m.name) {
			return nil
		}

		ok, err := extractMember(ctx, dest, m, opts)
		if ok {
			post(m.entry())
		}

		return err
	})
}

func (l *Libarchive) Test(ctx context.Context, password string, post func(entry.Entry)) error {
	return l.walk(ctx, password, func(m member) error {
		if err := drain(ctx, m); err != nil {
			return err
		}

		post(m.entry())
		return nil
	})
}

func (l *Libarchive) Add(context.Context, []string, backend.AddOptions) error {
	return failure.New(failure.Unsupported, "libarchive backend is read-only")
}

func (l *Libarchive) Delete(context.Context, []string) error {
	return failure.New(failure.Unsupported, "libarchive backend is read-only")
}

func (l *Libarchive) Create(context.Context) error {
	return failure.New(failure.Unsupported, "libarchive backend is read-only")
}

// walk identifies the archive then calls fn for every member in archive order.
func (l *Libarchive) walk(ctx context.Context, password string, fn func(m member) error) error {
	file, err := os.Open(l.name)
	if err != nil {
		return failure.Wrap(failure.UnknownOrCorruptFormat, err, `open archive "%s" error`, l.name)
	}
	defer file.Close()

	af, input, err := archives.Identify(ctx, l.name, file)
	if err != nil {
		if errors.Is(err, archives.NoMatch) {
			return failure.New(failure.UnknownOrCorruptFormat, `"%s" is not an archive`, l.name)
		}

		return failure.Wrap(failure.UnknownOrCorruptFormat, err, `identify archive "%s" error`, l.name)
	}

	ex, ok := withPassword(af, password).(archives.Extractor)
	if !ok {
		return failure.New(failure.UnknownOrCorruptFormat, `"%s" (%s) cannot be read`, l.name, af.Extension())
	}

	var handlerErr error
	err = ex.Extract(ctx, input, func(ctx context.Context, f archives.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		handlerErr = fn(member{
			name:       f.NameInArchive,
			linkTarget: f.LinkTarget,
			mode:       f.Mode(),
			size:       f.Size(),
			modTime:    f.ModTime(),
			open: func() (io.ReadCloser, error) {
				rc, err := f.Open()
				if err != nil {
					return nil, err
				}

				return rc, nil
			},
		})
		return handlerErr
	})

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return failure.Wrap(failure.Cancelled, ctx.Err(), "cancelled")
	case isPasswordError(err):
		return failure.Wrap(failure.PasswordRequired, err, `read archive "%s" error`, l.name)
	case handlerErr != nil && errors.Is(err, handlerErr):
		// failures writing to disk are not the archive's fault.
		if failure.KindOf(handlerErr, failure.None) != failure.None {
			return handlerErr
		}

		return failure.Wrap(failure.NonZeroExit, handlerErr, `extract archive "%s" error`, l.name)
	default:
		return failure.Wrap(failure.UnknownOrCorruptFormat, err, `read archive "%s" error`, l.name)
	}
}

// withPassword sets the password of the formats that support encryption. archives.Zip has no password field.
func withPassword(af archives.Format, password string) archives.Format {
	if password == "" {
		return af
	}

	switch v := af.(type) {
	case archives.Rar:
		v.Password = password
		return v
	case *archives.Rar:
		v.Password = password
	case archives.SevenZip:
		v.Password = password
		return v
	case *archives.SevenZip:
		v.Password = password
	}

	return af
}

// isPasswordError recognises the errors of the rar and 7z decoders about encrypted content.
func isPasswordError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypted")
}

func (l *Libarchive) String() string {
	return fmt.Sprintf("libarchive(%s)", l.name)
}
