package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive"
	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/internal"
	"go.uber.org/zap"
)

// AddMixin has the flags of commands that add files.
type AddMixin struct {
	FullPath  bool `long:"full-path" description:"store the paths as given instead of relative to the parent of the first file"`
	Update    bool `short:"u" long:"update" description:"only replace members that are older than the files on disk"`
	NoRecurse bool `long:"no-recurse" description:"do not add the contents of directories"`
	JunkPaths bool `short:"j" long:"junk-paths" description:"store only the base names of the files"`
	Symlinks  bool `long:"symlinks" description:"store symbolic links as links instead of the files they point to"`
	Encrypt   bool `short:"e" long:"encrypt" description:"encrypt the added files with the password"`
}

func (m *AddMixin) addOptions(defaults backend.AddOptions, password string) backend.AddOptions {
	opts := defaults
	opts.StoreFullPath = opts.StoreFullPath || m.FullPath
	opts.UpdateOnlyIfNewer = opts.UpdateOnlyIfNewer || m.Update
	opts.RecurseDirectories = opts.RecurseDirectories && !m.NoRecurse
	opts.JunkDirectoryNames = opts.JunkDirectoryNames || m.JunkPaths
	opts.StoreSymlinks = opts.StoreSymlinks || m.Symlinks
	if m.Encrypt {
		opts.Password = password
	}

	return opts
}

type Add struct {
	Args struct {
		Archive flags.Filename   `positional-arg-name:"archive" description:"the archive to add files to; created if it does not exist" required:"yes"`
		Files   []flags.Filename `positional-arg-name:"file" description:"the files or directories to be added" required:"yes"`
	} `positional-args:"yes" required:"yes"`

	AddMixin
	Mixin
}

func (c *Add) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	if c.Encrypt && c.Password == "" {
		return fmt.Errorf("--encrypt requires --password")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	name := string(c.Args.Archive)
	logger := internal.WithPrefix(c.logger, 0, 1, c.Args.Archive)

	var a *arkive.Archive
	switch _, err := os.Stat(name); {
	case err == nil:
		if a, err = c.open(ctx, name, logger, nil); err != nil {
			return err
		}
	case errors.Is(err, os.ErrNotExist):
		if a, err = c.create(ctx, name, logger); err != nil {
			return err
		}
	default:
		return fmt.Errorf(`stat archive "%s" error: %w`, name, err)
	}
	defer a.Close()

	return addFiles(ctx, &c.Mixin, &c.AddMixin, a, logger, c.Args.Files)
}

// create creates a new archive and waits for it.
func (m *Mixin) create(ctx context.Context, name string, logger *zap.Logger) (*arkive.Archive, error) {
	optFn, err := m.options(logger)
	if err != nil {
		return nil, err
	}

	a, o, err := arkive.Create(ctx, name, optFn)
	if err != nil {
		return nil, err
	}

	if r := m.wait(ctx, a, o, "creating", nil); !r.Success {
		_ = a.Close()
		return nil, r.Error()
	}

	logger.Info("created archive", zap.String("format", string(a.Format())))
	return a, nil
}

func addFiles(ctx context.Context, m *Mixin, am *AddMixin, a *arkive.Archive, logger *zap.Logger, files []flags.Filename) error {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = string(f)
	}

	opts := am.addOptions(m.settings.Add, m.Password)
	before := len(a.Entries())

	if err := m.run(ctx, a, logger, "adding", nil, func() (*arkive.Operation, error) {
		return a.AddFiles(ctx, paths, opts)
	}); err != nil {
		return err
	}

	logger.Sugar().Infof("successfully added %d files; archive now has %d entries (was %d)", len(paths), len(a.Entries()), before)
	return nil
}
