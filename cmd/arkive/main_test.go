package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/arkive/failure"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(&flags.Error{Type: flags.ErrHelp, Message: "Usage: arkive"}))
	assert.Equal(t, 130, exitCode(fmt.Errorf("extract backup.tar.zst: %w", failure.New(failure.Cancelled, "operation was cancelled"))))
	assert.Equal(t, 1, exitCode(errors.New("no such archive")))
	assert.Equal(t, 1, exitCode(failure.New(failure.PasswordRequired, "a password is required")))
}
