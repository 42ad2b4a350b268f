package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive/internal"
)

type Cat struct {
	Args struct {
		Archive flags.Filename `positional-arg-name:"archive" description:"the archive to read from" required:"yes"`
		Member  string         `positional-arg-name:"member" description:"the path of the member to be written to stdout" required:"yes"`
	} `positional-args:"yes" required:"yes"`

	Mixin
}

func (c *Cat) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	c.quiet = true
	logger := internal.WithPrefix(c.logger, 0, 1, c.Args.Archive)

	a, err := c.open(ctx, string(c.Args.Archive), logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	name, err := a.Preview(ctx, c.Args.Member)
	if err != nil {
		return err
	}

	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf(`open "%s" error: %w`, name, err)
	}
	defer f.Close()

	if _, err = io.Copy(stdout, f); err != nil {
		return fmt.Errorf(`write "%s" error: %w`, c.Args.Member, err)
	}

	return nil
}
