package main

import (
	"errors"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/internal/cmd"
)

func main() {
	p, err := cmd.NewParser()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	_, err = p.Parse()
	exit(err)
}

// exitCode is 0 for success and for the help message, 130 for an interrupted operation, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil, flags.WroteHelp(err):
		return 0
	case errors.Is(err, failure.ErrCancelled):
		return 130
	default:
		return 1
	}
}
