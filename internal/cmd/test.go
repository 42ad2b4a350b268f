package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive"
	"github.com/nguyengg/arkive/internal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Test struct {
	KeepGoing      bool `short:"k" long:"keep-going" description:"keep testing the other archives after one fails"`
	MaxConcurrency int  `short:"P" long:"max-concurrency" description:"test up to max-concurrency number of archives at a time"`
	Args           struct {
		Files []flags.Filename `positional-arg-name:"archive" description:"the archives to be tested" required:"yes"`
	} `positional-args:"yes"`

	Mixin
}

func (c *Test) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max-concurrency must be non-negative")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	workers := c.workers(c.MaxConcurrency)
	c.quiet = workers > 1

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var success atomic.Int32
	n := len(c.Args.Files)
	for i, file := range c.Args.Files {
		logger := internal.WithPrefix(c.logger, i, n, file)

		g.Go(func() error {
			err := c.test(gctx, string(file), logger)
			switch {
			case err == nil:
				logger.Info("archive is ok")
				success.Add(1)
				return nil
			case errors.Is(err, context.Canceled) || gctx.Err() != nil:
				return nil
			}

			logger.Error("test error", zap.Error(err))
			if c.KeepGoing {
				return nil
			}

			return fmt.Errorf(`test "%s" error: %w`, file, err)
		})
	}

	err := g.Wait()

	c.logger.Sugar().Infof("successfully tested %d/%d archives", success.Load(), n)
	return err
}

func (c *Test) test(ctx context.Context, name string, logger *zap.Logger) error {
	a, err := c.open(ctx, name, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.run(ctx, a, logger, "testing", nil, func() (*arkive.Operation, error) {
		return a.Test(ctx)
	})
}
