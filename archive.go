package arkive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/job"
	"github.com/nguyengg/arkive/util"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Archive is one open archive.
//
// At most one operation runs at a time; starting another while one is in progress fails with an error of kind
// failure.Busy. All methods are safe for concurrent use.
type Archive struct {
	path     string
	format   format.Format
	opts     *Options
	logger   *zap.Logger
	handlers []handler
	ctrl     job.Controller

	// mu guards the fields below.
	mu       sync.Mutex
	entries  []entry.Entry
	password string
	current  *Operation
	tempDir  string
	closed   bool
}

func newArchive(path string, f format.Format, opts *Options) (*Archive, error) {
	logger := opts.Logger.Named("archive").With(zap.String("path", path), zap.String("format", string(f)))

	handlers, err := newHandlers(path, f, opts, logger)
	if err != nil {
		return nil, err
	}

	return &Archive{
		path:     path,
		format:   f,
		opts:     opts,
		logger:   logger,
		handlers: handlers,
		password: opts.Password,
	}, nil
}

// Path returns the absolute path of the archive.
func (a *Archive) Path() string {
	return a.path
}

// Format returns the format of the archive.
func (a *Archive) Format() format.Format {
	return a.format
}

// Operations returns the operations at least one backend supports for the archive.
func (a *Archive) Operations() (ops backend.Operations) {
	for _, h := range a.handlers {
		ops |= h.operations()
	}

	return ops
}

// Backends returns the names of the backends able to handle the archive, in preference order.
func (a *Archive) Backends() []string {
	return lo.Map(a.handlers, func(h handler, _ int) string { return h.name() })
}

// Entries returns a copy of the entries of the last successful listing.
//
// The entries are replaced when a listing completes, including the fresh listing that follows every successful
// AddFiles and Remove.
func (a *Archive) Entries() []entry.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	return slices.Clone(a.entries)
}

// IsOperationInProgress returns true if an operation has been started and has not finished yet.
func (a *Archive) IsOperationInProgress() bool {
	return a.ctrl.InProgress()
}

// CancelCurrentOperation cancels the operation in progress.
//
// The operation still finishes with exactly one job.OperationFinished event, of kind failure.Cancelled. Returns false
// if there was no operation to cancel.
func (a *Archive) CancelCurrentOperation() bool {
	return a.ctrl.Cancel()
}

// Reload sets the password then starts listing the archive again.
//
// This is how a caller retries after an operation failed with failure.PasswordRequired.
func (a *Archive) Reload(ctx context.Context, password string) (*Operation, error) {
	h, err := a.handlerFor(backend.View)
	if err != nil {
		return nil, err
	}

	// the password only changes once the controller is ours.
	return a.start(ctx, job.List, func(s *session) job.Result {
		s.a.mu.Lock()
		s.a.password = password
		s.a.mu.Unlock()

		return s.list(h)
	})
}

// AddFiles adds files to the archive, then lists it again.
//
// If the backend appends duplicates instead of replacing members of the same name, the existing members are deleted
// first.
func (a *Archive) AddFiles(ctx context.Context, paths []string, opts backend.AddOptions) (*Operation, error) {
	h, err := a.handlerFor(backend.Add)
	if err != nil {
		return nil, err
	}

	add, err := h.add(paths, opts)
	if err != nil {
		return nil, err
	}

	var pre *job.Spec
	if names, ok := h.duplicates(paths, opts); ok {
		if existing := a.existing(names); len(existing) != 0 {
			spec, err := h.delete(existing)
			if err != nil {
				return nil, err
			}

			pre = &spec
		}
	}

	viewer, err := a.handlerFor(backend.View)
	if err != nil {
		return nil, err
	}

	return a.start(ctx, job.Add, func(s *session) job.Result {
		if pre != nil {
			s.a.logger.Debug("deleting existing members before adding them again", zap.String("backend", h.name()))
			if r := s.run(*pre, false); !r.Success {
				return r
			}
		}

		if r := s.run(add, false); !r.Success {
			return r
		}

		return s.list(viewer)
	})
}

// AddDirectory adds a directory and its content to the archive, then lists it again.
func (a *Archive) AddDirectory(ctx context.Context, dir string, opts backend.AddOptions) (*Operation, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf(`stat directory "%s" error: %w`, dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf(`"%s" is not a directory`, dir)
	}

	opts.RecurseDirectories = true
	return a.AddFiles(ctx, []string{dir}, opts)
}

// Remove deletes members from the archive, then lists it again.
func (a *Archive) Remove(ctx context.Context, paths []string) (*Operation, error) {
	h, err := a.handlerFor(backend.Delete)
	if err != nil {
		return nil, err
	}

	del, err := h.delete(paths)
	if err != nil {
		return nil, err
	}

	viewer, err := a.handlerFor(backend.View)
	if err != nil {
		return nil, err
	}

	return a.start(ctx, job.Delete, func(s *session) job.Result {
		if r := s.run(del, false); !r.Success {
			return r
		}

		return s.list(viewer)
	})
}

// Extract extracts the given members, or every member if paths is empty, into dest.
//
// Returns an error of kind failure.NoDestinationDirectory if dest is empty, before anything is started. The
// destination is created if it does not exist. If opts.Password is empty, the password of the archive is used.
func (a *Archive) Extract(ctx context.Context, paths []string, dest string, opts backend.ExtractOptions) (*Operation, error) {
	if dest == "" {
		return nil, failure.New(failure.NoDestinationDirectory, "no destination directory to extract %s to", filepath.Base(a.path))
	}

	h, err := a.handlerFor(backend.Extract)
	if err != nil {
		return nil, err
	}

	if opts.Password == "" {
		opts.Password = a.currentPassword()
	}

	spec, err := h.extract(paths, dest, opts)
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf(`create destination "%s" error: %w`, dest, err)
	}

	return a.start(ctx, job.Extract, func(s *session) job.Result {
		return s.run(spec, true)
	})
}

// Test checks the integrity of every member.
func (a *Archive) Test(ctx context.Context) (*Operation, error) {
	h, err := a.handlerFor(backend.Integrity)
	if err != nil {
		return nil, err
	}

	spec, err := h.test(a.currentPassword())
	if err != nil {
		return nil, err
	}

	return a.start(ctx, job.Test, func(s *session) job.Result {
		return s.run(spec, true)
	})
}

// Preview extracts one member into the temporary directory of the archive and returns the path of the extracted file.
//
// Unlike the other operations, Preview waits for the extraction to finish. The temporary directory is removed by
// Close.
func (a *Archive) Preview(ctx context.Context, member string) (string, error) {
	dir, err := a.previewDir()
	if err != nil {
		return "", err
	}

	o, err := a.Extract(ctx, []string{member}, dir, backend.ExtractOptions{Overwrite: true})
	if err != nil {
		return "", err
	}
	if err = o.Err(); err != nil {
		return "", err
	}

	name := filepath.Join(dir, filepath.FromSlash(strings.Trim(member, "/")))
	if _, err = os.Lstat(name); err != nil {
		return "", fmt.Errorf(`preview "%s" error: %w`, member, err)
	}

	return name, nil
}

// Close cancels the operation in progress, waits for it to finish, and removes the temporary directory.
//
// Close is idempotent. Every operation started after Close fails.
func (a *Archive) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}

	a.closed = true
	current, tempDir := a.current, a.tempDir
	a.mu.Unlock()

	if current != nil {
		a.ctrl.Cancel()
		current.Wait()
	}

	if tempDir != "" {
		if err := os.RemoveAll(tempDir); err != nil {
			return fmt.Errorf(`remove temporary directory "%s" error: %w`, tempDir, err)
		}

		a.logger.Debug("removed temporary directory", zap.String("dir", tempDir))
	}

	return nil
}

var errClosed = errors.New("archive is closed")

func (a *Archive) currentPassword() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.password
}

func (a *Archive) previewDir() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return "", errClosed
	}

	if a.tempDir == "" {
		stem, _ := util.StemAndExt(a.path)
		dir, err := util.MkExclDir(a.opts.TempDir, "arkive-"+stem, 0700)
		if err != nil {
			return "", err
		}

		a.tempDir = dir
		a.logger.Debug("created temporary directory", zap.String("dir", dir))
	}

	return a.tempDir, nil
}

// handlerFor returns the first handler that supports op.
func (a *Archive) handlerFor(op backend.Operations) (handler, error) {
	for _, h := range a.handlers {
		if h.operations().Has(op) {
			return h, nil
		}
	}

	return nil, failure.New(failure.Unsupported, "no backend supports %s on %s archives", op, a.format)
}

// existing returns the names that are already members of the archive, either as is or as a directory.
func (a *Archive) existing(names []string) []string {
	entries := a.Entries()

	return lo.Filter(lo.Uniq(names), func(name string, _ int) bool {
		return lo.ContainsBy(entries, func(e entry.Entry) bool {
			return e.Path == name || strings.HasPrefix(e.Path, name+"/")
		})
	})
}

// start reserves the controller then runs fn on a new goroutine.
func (a *Archive) start(ctx context.Context, kind job.Operation, fn func(s *session) job.Result) (*Operation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, errClosed
	}

	r, err := a.ctrl.Reserve()
	if err != nil {
		return nil, err
	}

	o := newOperation(kind)
	a.current = o

	go func() {
		res := fn(&session{a: a, ctx: ctx, r: r, o: o})

		// release first so that a caller reacting to the terminal event may start the next operation right away.
		r.Release()
		o.finish(res)
	}()

	return o, nil
}

// session is the context of the jobs of one Operation.
type session struct {
	a   *Archive
	ctx context.Context
	r   *job.Reservation
	o   *Operation
}

// run runs one job to completion, forwarding its entries to the operation if forward is true.
func (s *session) run(spec job.Spec, forward bool) job.Result {
	r, _ := s.collect(spec, forward)
	return r
}

func (s *session) collect(spec job.Spec, forward bool) (job.Result, []entry.Entry) {
	var entries []entry.Entry

	spec.Logger = s.a.logger
	spec.Listener = func(e job.Event) {
		if e.Kind != job.EntryDiscovered {
			return
		}

		entries = append(entries, e.Entry)
		if forward {
			s.o.post(e.Entry)
		}
	}

	j, err := s.r.Start(s.ctx, spec)
	if err != nil {
		return resultOf(spec.Operation, err), nil
	}

	return j.Wait(), entries
}

// list lists the archive, replacing the entries of the archive on success.
func (s *session) list(h handler) job.Result {
	r, entries := s.collect(h.list(s.a.currentPassword()), true)
	if r.Success {
		s.a.mu.Lock()
		s.a.entries = entries
		s.a.mu.Unlock()
	}

	return r
}
