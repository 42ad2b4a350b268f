package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/internal"
	"github.com/nguyengg/arkive/internal/executor"
	"go.uber.org/zap"
)

type List struct {
	Long           bool `short:"l" long:"long" description:"print size, ratio, modification time, and permissions of every entry"`
	Bytes          bool `long:"bytes" description:"print sizes in bytes instead of human-readable units"`
	MaxConcurrency int  `short:"P" long:"max-concurrency" description:"list up to max-concurrency number of archives at a time"`
	Args           struct {
		Files []flags.Filename `positional-arg-name:"archive" description:"the archives to be listed" required:"yes"`
	} `positional-args:"yes"`

	Mixin
}

func (c *List) Execute(args []string) error {
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

	ex := executor.NewCallerRunOnRejectExecutor(workers)

	var (
		mu      sync.Mutex
		success = 0
		n       = len(c.Args.Files)
	)

	for i, file := range c.Args.Files {
		if ctx.Err() != nil {
			break
		}

		logger := internal.WithPrefix(c.logger, i, n, file)

		ex.Execute(func() {
			var buf bytes.Buffer
			err := c.list(ctx, string(file), logger, &buf)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("list error", zap.Error(err))
				}
				return
			}

			if n > 1 {
				_, _ = fmt.Fprintf(stdout, "==> %s <==\n", file)
			}
			_, _ = io.Copy(stdout, &buf)
			success++
		})
	}

	_ = ex.Close()

	c.logger.Sugar().Infof("successfully listed %d/%d archives", success, n)
	return nil
}

func (c *List) list(ctx context.Context, name string, logger *zap.Logger, w io.Writer) error {
	a, err := c.open(ctx, name, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.Entries()
	if !c.Long {
		for _, e := range entries {
			_, _ = fmt.Fprintln(w, e.Path)
		}

		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	var size, packed uint64
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t %s\n", e.Permissions, c.size(e.Size), c.size(e.PackedSize), ratio(e), modified(e), displayName(e))
		size += e.Size
		packed += e.PackedSize
	}

	total := entry.Entry{Size: size, PackedSize: packed}
	total.DeriveRatio()
	_, _ = fmt.Fprintf(tw, "\t%s\t%s\t%s\t\t %d entries\n", c.size(size), c.size(packed), ratio(total), len(entries))

	return tw.Flush()
}

func (c *List) size(v uint64) string {
	if c.Bytes {
		return fmt.Sprintf("%d", v)
	}

	return humanize.IBytes(v)
}

func ratio(e entry.Entry) string {
	if e.Ratio == 0 {
		return "-"
	}

	return fmt.Sprintf("%.0f%%", e.Ratio)
}

func modified(e entry.Entry) string {
	if !e.HasTimestamp() {
		return "-"
	}

	return e.Modified.Format("2006-01-02 15:04")
}

func displayName(e entry.Entry) string {
	if e.IsSymlink() {
		return e.Path + " -> " + e.LinkTarget
	}

	return e.Path
}
