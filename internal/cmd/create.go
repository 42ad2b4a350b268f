package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive/internal"
)

type Create struct {
	Args struct {
		Archive flags.Filename   `positional-arg-name:"archive" description:"the archive to create; its extension determines the format unless --format is given" required:"yes"`
		Files   []flags.Filename `positional-arg-name:"file" description:"the files or directories to be added"`
	} `positional-args:"yes" required:"yes"`

	AddMixin
	Mixin
}

func (c *Create) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	if c.Encrypt && c.Password == "" {
		return fmt.Errorf("--encrypt requires --password")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	logger := internal.WithPrefix(c.logger, 0, 1, c.Args.Archive)

	a, err := c.create(ctx, string(c.Args.Archive), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(c.Args.Files) == 0 {
		return nil
	}

	return addFiles(ctx, &c.Mixin, &c.AddMixin, a, logger, c.Args.Files)
}
