package arkive

import (
	"context"
	"errors"
	"slices"

	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/embedded"
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/job"
	"github.com/nguyengg/arkive/listing"
	"go.uber.org/zap"
)

// handler turns facade operations into job specs for one backend.
type handler interface {
	name() string
	operations() backend.Operations
	list(password string) job.Spec
	add(paths []string, opts backend.AddOptions) (job.Spec, error)
	delete(paths []string) (job.Spec, error)
	extract(paths []string, dest string, opts backend.ExtractOptions) (job.Spec, error)
	test(password string) (job.Spec, error)
	// create returns false if the archive comes into existence with the first add instead.
	create() (job.Spec, bool, error)
	// duplicates returns the member names of the given files, if the backend appends duplicates instead of replacing
	// existing members of the same name.
	duplicates(paths []string, opts backend.AddOptions) ([]string, bool)
}

// driverHandler runs the command-line tool of a backend.Driver.
type driverHandler struct {
	d             *backend.Driver
	parserOptions []func(*listing.ParserOptions)
}

func (h *driverHandler) spec(op job.Operation, cmd backend.Command) job.Spec {
	return job.Spec{
		Operation:              op,
		Command:                cmd,
		DetectPasswordRequired: h.d.DetectPasswordRequired,
		IsWarning:              h.d.IsWarning,
	}
}

func (h *driverHandler) name() string {
	return h.d.Kind().String()
}

func (h *driverHandler) operations() backend.Operations {
	return h.d.Operations()
}

func (h *driverHandler) list(password string) job.Spec {
	s := h.spec(job.List, h.d.ListCommand(password))
	s.Columns = h.d.ColumnSpec()
	s.ParserOptions = h.parserOptions
	return s
}

func (h *driverHandler) add(paths []string, opts backend.AddOptions) (job.Spec, error) {
	cmd, err := h.d.AddCommand(paths, opts)
	return h.spec(job.Add, cmd), err
}

func (h *driverHandler) delete(paths []string) (job.Spec, error) {
	cmd, err := h.d.DeleteCommand(paths)
	return h.spec(job.Delete, cmd), err
}

func (h *driverHandler) extract(paths []string, dest string, opts backend.ExtractOptions) (job.Spec, error) {
	cmd, err := h.d.ExtractCommand(paths, dest, opts)
	return h.spec(job.Extract, cmd), err
}

func (h *driverHandler) test(password string) (job.Spec, error) {
	cmd, err := h.d.TestCommand(password)
	return h.spec(job.Test, cmd), err
}

func (h *driverHandler) create() (job.Spec, bool, error) {
	cmd, ok, err := h.d.CreateCommand()
	return h.spec(job.Create, cmd), ok, err
}

func (h *driverHandler) duplicates(paths []string, opts backend.AddOptions) ([]string, bool) {
	if !h.d.DuplicatesOnAppend() {
		return nil, false
	}

	return h.d.MemberNames(paths, opts), true
}

// embeddedHandler runs an embedded.Backend on a background worker.
type embeddedHandler struct {
	b embedded.Backend
}

func (h *embeddedHandler) name() string {
	return h.b.Name()
}

func (h *embeddedHandler) operations() backend.Operations {
	return h.b.Operations()
}

func (h *embeddedHandler) list(password string) job.Spec {
	return job.Spec{Operation: job.List, Worker: func(ctx context.Context, post func(entry.Entry)) error {
		return h.b.List(ctx, password, post)
	}}
}

func (h *embeddedHandler) add(paths []string, opts backend.AddOptions) (job.Spec, error) {
	if len(paths) == 0 {
		return job.Spec{}, errors.New("no files to add")
	}

	return job.Spec{Operation: job.Add, Worker: func(ctx context.Context, _ func(entry.Entry)) error {
		return h.b.Add(ctx, paths, opts)
	}}, nil
}

func (h *embeddedHandler) delete(paths []string) (job.Spec, error) {
	if len(paths) == 0 {
		return job.Spec{}, errors.New("no members to delete")
	}

	return job.Spec{Operation: job.Delete, Worker: func(ctx context.Context, _ func(entry.Entry)) error {
		return h.b.Delete(ctx, paths)
	}}, nil
}

func (h *embeddedHandler) extract(paths []string, dest string, opts backend.ExtractOptions) (job.Spec, error) {
	return job.Spec{Operation: job.Extract, Worker: func(ctx context.Context, post func(entry.Entry)) error {
		return h.b.Extract(ctx, paths, dest, opts, post)
	}}, nil
}

func (h *embeddedHandler) test(password string) (job.Spec, error) {
	return job.Spec{Operation: job.Test, Worker: func(ctx context.Context, post func(entry.Entry)) error {
		return h.b.Test(ctx, password, post)
	}}, nil
}

func (h *embeddedHandler) create() (job.Spec, bool, error) {
	return job.Spec{Operation: job.Create, Worker: func(ctx context.Context, _ func(entry.Entry)) error {
		return h.b.Create(ctx)
	}}, true, nil
}

func (h *embeddedHandler) duplicates([]string, backend.AddOptions) ([]string, bool) {
	return nil, false
}

// newHandlers returns every backend able to handle the archive, in preference order.
func newHandlers(path string, f format.Format, opts *Options, logger *zap.Logger) ([]handler, error) {
	var (
		cli, emb []handler
		errs     []error
	)

	parserOptions := []func(*listing.ParserOptions){func(o *listing.ParserOptions) {
		if opts.Now != nil {
			o.Now = opts.Now
		}
		if opts.Location != nil {
			o.Location = opts.Location
		}
	}}

	for _, desc := range backend.For(f) {
		d, err := backend.NewFromDescriptor(desc, path, f, func(o *backend.Options) {
			exe := opts.Executables[desc.Kind]
			o.Archiver = exe.Archiver
			o.Unarchiver = exe.Unarchiver
			if opts.LookPath != nil {
				o.LookPath = opts.LookPath
			}
		})
		if err != nil {
			logger.Debug("skipping backend", zap.Stringer("backend", desc.Kind), zap.Error(err))
			errs = append(errs, err)
			continue
		}

		logger.Debug("found backend",
			zap.Stringer("backend", desc.Kind),
			zap.String("unarchiver", d.Unarchiver()),
			zap.String("archiver", d.Archiver()),
			zap.Stringer("operations", d.Operations()))
		cli = append(cli, &driverHandler{d: d, parserOptions: parserOptions})
	}

	if !opts.DisableEmbedded {
		if f.IsTar() {
			t, err := embedded.NewTar(path, f)
			if err != nil {
				return nil, err
			}

			emb = append(emb, &embeddedHandler{b: t})
		}

		if slices.Contains(embedded.LibarchiveFormats, f) {
			emb = append(emb, &embeddedHandler{b: embedded.NewLibarchive(path)})
		}
	}

	var handlers []handler
	if opts.PreferEmbedded {
		handlers = append(emb, cli...)
	} else {
		handlers = append(cli, emb...)
	}

	switch {
	case len(handlers) != 0:
		return handlers, nil
	case len(errs) != 0:
		return nil, failure.Wrap(failure.UtilityNotFound, errors.Join(errs...), "no backend for %s archives is available", f)
	default:
		return nil, failure.New(failure.UnknownOrCorruptFormat, "no backend handles %s archives", f)
	}
}
