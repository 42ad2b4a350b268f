package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive"
	"github.com/nguyengg/arkive/internal"
)

type Delete struct {
	Args struct {
		Archive flags.Filename `positional-arg-name:"archive" description:"the archive to delete members from" required:"yes"`
		Members []string       `positional-arg-name:"member" description:"the paths of the members to be deleted" required:"yes"`
	} `positional-args:"yes" required:"yes"`

	Mixin
}

func (c *Delete) Execute(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("unknown positional arguments: %s", strings.Join(args, " "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	logger := internal.WithPrefix(c.logger, 0, 1, c.Args.Archive)

	a, err := c.open(ctx, string(c.Args.Archive), logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	before := len(a.Entries())

	if err = c.run(ctx, a, logger, "deleting", nil, func() (*arkive.Operation, error) {
		return a.Remove(ctx, c.Args.Members)
	}); err != nil {
		return err
	}

	logger.Sugar().Infof("successfully deleted %d entries", before-len(a.Entries()))
	return nil
}
