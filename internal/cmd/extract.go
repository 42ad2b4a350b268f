package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive"
	"github.com/nguyengg/arkive/internal"
	"github.com/nguyengg/arkive/util"
	"go.uber.org/zap"
)

type Extract struct {
	Dir       flags.Filename `short:"d" long:"dir" description:"extract into this directory instead of the current directory or a new directory named after the archive"`
	Overwrite bool           `short:"o" long:"overwrite" description:"replace existing files without asking"`
	JunkPaths bool           `short:"j" long:"junk-paths" description:"extract every member directly into the destination"`
	Members   []string       `short:"m" long:"member" description:"extract only these members; can be given multiple times"`
	Args      struct {
		Files []flags.Filename `positional-arg-name:"archive" description:"the archives to be extracted" required:"yes"`
	} `positional-args:"yes"`

	Mixin
}

func (c *Extract) Execute(args []string) (err error) {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	success := 0
	n := len(c.Args.Files)
	for i, file := range c.Args.Files {
		logger := internal.WithPrefix(c.logger, i, n, file)
		logger.Info("start extracting")

		var dest string
		if dest, err = c.extract(ctx, string(file), logger); err == nil {
			logger.Info("done extracting", zap.String("dir", dest))
			success++
			continue
		}

		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			break
		}

		logger.Error("extract error", zap.Error(err))
	}

	c.logger.Sugar().Infof("successfully extracted %d/%d archives", success, n)
	return nil
}

func (c *Extract) extract(ctx context.Context, name string, logger *zap.Logger) (string, error) {
	a, err := c.open(ctx, name, logger, nil)
	if err != nil {
		return "", err
	}
	defer a.Close()

	dest, err := c.destination(a)
	if err != nil {
		return "", err
	}

	opts := c.settings.Extract
	opts.Overwrite = opts.Overwrite || c.Overwrite
	opts.JunkPaths = opts.JunkPaths || c.JunkPaths

	return dest, c.run(ctx, a, logger, "extracting", nil, func() (*arkive.Operation, error) {
		return a.Extract(ctx, c.Members, dest, opts)
	})
}

// destination returns the directory to extract the archive into.
//
// Archives whose members are all under one root directory are extracted into the current directory. Otherwise a new
// directory named after the archive is created so the members do not litter the current directory.
func (c *Extract) destination(a *arkive.Archive) (string, error) {
	if c.Dir != "" {
		return string(c.Dir), nil
	}

	if root := internal.FindRootDir(a.Entries()); root != "" || c.JunkPaths || len(c.Members) != 0 {
		return ".", nil
	}

	stem, _ := util.StemAndExt(filepath.Base(a.Path()))
	return util.MkExclDir(".", stem, 0755)
}
