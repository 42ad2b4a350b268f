package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/nguyengg/arkive"
	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/internal"
	"github.com/nguyengg/arkive/internal/config"
	"github.com/nguyengg/arkive/job"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// stdout is where commands write their output.
var stdout io.Writer = os.Stdout

// Mixin has the options and helpers shared by every command that opens archives.
type Mixin struct {
	Format         string `short:"f" long:"format" description:"force the format of the archives instead of identifying them"`
	Password       string `short:"p" long:"password" description:"password of encrypted archives; prompted for if needed and not given"`
	PreferEmbedded bool   `long:"prefer-embedded" description:"try the in-process backends before the command-line tools"`
	NoEmbedded     bool   `long:"no-embedded" description:"only use the command-line tools"`

	logger   *zap.Logger
	settings config.Settings

	// prompt reads a password for the named archive. Defaults to readPassword.
	prompt func(name string) (string, error)
	// quiet hides the spinner, which cannot be shared by concurrent archives.
	quiet bool
	// promptMu serialises prompts of concurrent archives.
	promptMu sync.Mutex
}

func (m *Mixin) configure(logger *zap.Logger, settings config.Settings) {
	m.logger = logger
	m.settings = settings
}

// options returns the arkive.Options of an archive from the settings and the command line.
func (m *Mixin) options(logger *zap.Logger) (func(*arkive.Options), error) {
	var f format.Format
	if m.Format != "" {
		var err error
		if f, err = format.Parse(m.Format); err != nil {
			return nil, err
		}
	}

	return func(opts *arkive.Options) {
		opts.Format = f
		opts.Password = m.Password
		opts.PreferEmbedded = m.PreferEmbedded || m.settings.PreferEmbedded
		opts.DisableEmbedded = m.NoEmbedded
		opts.Logger = logger

		opts.Executables = make(map[backend.Kind]arkive.Executables, len(m.settings.Executables))
		for k, v := range m.settings.Executables {
			opts.Executables[k] = arkive.Executables{Archiver: v.Archiver, Unarchiver: v.Unarchiver}
		}
	}, nil
}

// open opens an existing archive and waits for its listing, prompting for a password if one is needed.
func (m *Mixin) open(ctx context.Context, name string, logger *zap.Logger, fn func(entry.Entry)) (*arkive.Archive, error) {
	optFn, err := m.options(logger)
	if err != nil {
		return nil, err
	}

	a, o, err := arkive.Open(ctx, name, optFn)
	if err != nil {
		return nil, err
	}

	logger.Debug("opened archive", zap.String("format", string(a.Format())), zap.Strings("backends", a.Backends()))

	if err = m.run(ctx, a, logger, "listing", fn, func() (*arkive.Operation, error) {
		return o, nil
	}); err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}

// run starts an operation with start and waits for it.
//
// If the operation fails because a password is required, the password is prompted for once and the archive is listed
// again with it. The operation is then started again, unless it was the listing itself. Entries of the operation are
// passed to fn if it is non-nil.
func (m *Mixin) run(ctx context.Context, a *arkive.Archive, logger *zap.Logger, description string, fn func(entry.Entry), start func() (*arkive.Operation, error)) error {
	o, err := start()
	if err != nil {
		return err
	}

	r := m.wait(ctx, a, o, description, fn)
	if r.Success || r.Kind != failure.PasswordRequired || ctx.Err() != nil {
		return r.Error()
	}

	logger.Warn("password is required", zap.String("message", r.Message))

	password, err := m.readPassword(a.Path())
	if err != nil {
		return errors.Join(r.Error(), err)
	}

	if o, err = a.Reload(ctx, password); err != nil {
		return err
	}

	if r.Operation == job.List {
		return m.wait(ctx, a, o, description, fn).Error()
	}

	if r = m.wait(ctx, a, o, "listing", nil); !r.Success {
		return r.Error()
	}

	if o, err = start(); err != nil {
		return err
	}

	return m.wait(ctx, a, o, description, fn).Error()
}

// wait drains the events of the operation, cancelling it if ctx is cancelled.
func (m *Mixin) wait(ctx context.Context, a *arkive.Archive, o *arkive.Operation, description string, fn func(entry.Entry)) job.Result {
	bar := internal.DefaultSpinner(description, progressbar.OptionSetVisibility(!m.quiet))
	defer func() {
		_ = bar.Finish()
	}()

	done := ctx.Done()
	for {
		select {
		case <-done:
			a.CancelCurrentOperation()
			done = nil
		case e, ok := <-o.Events():
			if !ok {
				return o.Wait()
			}

			if e.Kind == job.EntryDiscovered {
				_ = bar.Add(1)
				if fn != nil {
					fn(e.Entry)
				}
			}
		}
	}
}

func (m *Mixin) readPassword(name string) (string, error) {
	m.promptMu.Lock()
	defer m.promptMu.Unlock()

	if m.prompt != nil {
		return m.prompt(name)
	}

	return readPassword(name)
}

// readPassword prompts for a password on the terminal without echoing it.
func readPassword(name string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf(`cannot prompt for password of "%s": stdin is not a terminal`, name)
	}

	_, _ = fmt.Fprintf(os.Stderr, `password for "%s": `, name)
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password error: %w", err)
	}

	return string(b), nil
}

// workers returns the number of archives to process concurrently.
func (m *Mixin) workers(override int) int {
	if override > 0 {
		return override
	}

	return max(m.settings.Workers, 1)
}
