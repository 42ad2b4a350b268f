// Package arkive is the archive facade: it opens an archive with whichever backends can handle its format, then runs
// list, add, delete, extract, and test operations one at a time, each reported as an ordered stream of events.
package arkive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/job"
	"go.uber.org/zap"
)

// Options customises Open and Create.
type Options struct {
	// Format forces the format of the archive instead of identifying it by name and content.
	Format format.Format
	// Password is used for listing, extracting, and testing. See Archive.Reload to change it.
	Password string

	// PreferEmbedded tries the in-process backends before the command-line tools.
	PreferEmbedded bool
	// DisableEmbedded only uses the command-line tools.
	DisableEmbedded bool
	// Executables overrides the executables of specific command-line backends.
	Executables map[backend.Kind]Executables
	// LookPath resolves executables. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)

	// Logger defaults to zap.NewNop.
	Logger *zap.Logger
	// Now is used to infer the year of listed entries that only have a time of day. Defaults to time.Now.
	Now func() time.Time
	// Location is the timezone of listed timestamps. Defaults to time.Local.
	Location *time.Location
	// TempDir is the parent of the preview directory. Defaults to os.TempDir.
	TempDir string
}

// Executables names the archiver and unarchiver of a command-line backend. Empty fields keep the defaults.
type Executables struct {
	Archiver   string
	Unarchiver string
}

func newOptions(optFns []func(*Options)) *Options {
	opts := &Options{}
	for _, fn := range optFns {
		fn(opts)
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}

	return opts
}

// Open opens an existing archive and starts listing it.
//
// The format is identified by the file extension first, then by content, unless Options.Format is given. Returns an
// error of kind failure.UnknownOrCorruptFormat if no backend claims the file, and failure.UtilityNotFound if the
// backends that do need tools that are not installed.
//
// Open does not wait for the listing: the returned Operation reports the entries as they are discovered.
func Open(ctx context.Context, path string, optFns ...func(*Options)) (*Archive, *Operation, error) {
	opts := newOptions(optFns)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf(`resolve absolute path of "%s" error: %w`, path, err)
	}

	if _, err = os.Stat(abs); err != nil {
		return nil, nil, fmt.Errorf(`stat archive "%s" error: %w`, path, err)
	}

	f := opts.Format
	if f == format.Unknown {
		if f, err = format.Identify(ctx, abs); err != nil {
			return nil, nil, err
		}
	}

	a, err := newArchive(abs, f, opts)
	if err != nil {
		return nil, nil, err
	}

	o, err := a.Reload(ctx, opts.Password)
	if err != nil {
		return nil, nil, err
	}

	return a, o, nil
}

// Create creates a new archive.
//
// The format is identified by the file extension unless Options.Format is given. Some tools cannot create an empty
// archive, in which case the returned Operation succeeds immediately and the file comes into existence with the first
// Archive.AddFiles.
func Create(ctx context.Context, path string, optFns ...func(*Options)) (*Archive, *Operation, error) {
	opts := newOptions(optFns)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf(`resolve absolute path of "%s" error: %w`, path, err)
	}

	if _, err = os.Stat(abs); err == nil {
		return nil, nil, fmt.Errorf(`create archive "%s" error: %w`, path, os.ErrExist)
	}

	f := opts.Format
	if f == format.Unknown {
		var ok bool
		if f, ok = format.FromExt(abs); !ok {
			return nil, nil, failure.New(failure.UnknownOrCorruptFormat, `cannot tell the format of "%s" from its name`, path)
		}
	}

	a, err := newArchive(abs, f, opts)
	if err != nil {
		return nil, nil, err
	}

	h, err := a.handlerFor(backend.Add)
	if err != nil {
		return nil, nil, err
	}

	spec, ok, err := h.create()
	if err != nil {
		return nil, nil, err
	}

	o, err := a.start(ctx, job.Create, func(s *session) job.Result {
		if !ok {
			s.a.logger.Debug("archive will be created by the first add", zap.String("backend", h.name()))
			return job.Result{Success: true, ExitCode: -1}
		}

		return s.run(spec, false)
	})
	if err != nil {
		return nil, nil, err
	}

	return a, o, nil
}
