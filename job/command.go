package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/listing"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// waitDelay bounds how long a cancelled process may keep its pipes open after it has been killed.
const waitDelay = 5 * time.Second

// stream parses stdout as it arrives. Write is called by the copying goroutine of exec.Cmd only, and the fields are
// read after Wait returns.
type stream struct {
	job    *Job
	logger *zap.Logger

	reassembler listing.Reassembler
	parser      *listing.Parser
	entries     int
	lines       int
	bytes       int64
	sometimes   rate.Sometimes
}

func (s *stream) Write(p []byte) (int, error) {
	s.bytes += int64(len(p))
	for _, line := range s.reassembler.Feed(p) {
		s.job.handleLine(line, s)
	}

	return len(p), nil
}

// close flushes the trailing partial line at end of output.
func (s *stream) close() {
	if line, ok := s.reassembler.Flush(); ok {
		s.job.handleLine(line, s)
	}
	if s.parser != nil && s.parser.Finish() {
		s.logger.Debug("discarded incomplete entry at end of output")
	}
}

// runCommand runs the subprocess variant.
func (j *Job) runCommand(ctx context.Context) Result {
	var (
		op  = j.spec.Operation
		c   = j.spec.Command
		cmd = exec.CommandContext(ctx, c.Path, c.Args...)
	)

	logger := j.logger.With(zap.Stringer("cmd", c))
	if c.Dir != "" {
		logger = logger.With(zap.String("dir", c.Dir))
	}

	s := &stream{
		job:       j,
		logger:    logger,
		sometimes: rate.Sometimes{Interval: 5 * time.Second},
	}
	if j.spec.Columns != nil {
		s.parser = listing.NewParser(j.spec.Columns, j.spec.ParserOptions...)
	}

	// the stderr buffer belongs to this job alone.
	var errBuf bytes.Buffer

	cmd.Dir = c.Dir
	if len(c.Env) != 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	cmd.Stdout = s
	cmd.Stderr = &errBuf
	cmd.WaitDelay = waitDelay

	logger.Debug("starting process")
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return failed(op, failure.Cancelled, "operation was cancelled", ctx.Err())
		}

		return failed(op, failure.ProcessSpawnFailed, fmt.Sprintf(`start "%s" error: %v`, c.Path, err), err)
	}

	j.setState(Streaming)

	waitErr := cmd.Wait()
	j.setState(ExitPending)
	s.close()

	r := j.decide(ctx, s, errBuf.String(), waitErr)
	r.Entries = s.entries
	return r
}

func (j *Job) handleLine(line string, s *stream) {
	logger := s.logger
	s.lines++

	if s.parser == nil {
		logger.Debug("output", zap.String("line", line))
		return
	}

	res := s.parser.Parse(line)
	switch res.Kind {
	case listing.Parsed:
		if !j.post(logger, res.Entry) {
			return
		}

		s.entries++

		s.sometimes.Do(func() {
			logger.Debug(fmt.Sprintf("streamed %d entries so far", s.entries))
		})
	case listing.Skipped:
		if res.Reason != "" {
			logger.Debug("skipping malformed line", zap.String("line", line), zap.String("reason", res.Reason))
		}
	}
}

// decide turns the exit status and the accumulated output into the terminal result.
//
// Cancellation wins over everything, then a password prompt, then the exit code, then the listing heuristics.
func (j *Job) decide(ctx context.Context, s *stream, stderr string, waitErr error) Result {
	var (
		op      = j.spec.Operation
		logger  = s.logger
		code    = -1
		exitErr *exec.ExitError
	)

	switch {
	case waitErr == nil:
		code = 0
	case errors.As(waitErr, &exitErr):
		code = exitErr.ExitCode()
	}

	logger.Debug("process exited",
		zap.Int("exitCode", code),
		zap.Int("lines", s.lines),
		zap.Int("entries", s.entries))

	r := failed(op, failure.None, "", nil)
	r.ExitCode = code
	r.Stderr = stderr

	switch {
	case ctx.Err() != nil:
		r.Kind, r.Message, r.Err = failure.Cancelled, "operation was cancelled", ctx.Err()
		return r

	case j.spec.DetectPasswordRequired != nil && j.spec.DetectPasswordRequired(stderr):
		r.Kind, r.Message, r.Err = failure.PasswordRequired, "a password is required, or the one given is incorrect", waitErr
		return r

	case waitErr != nil && code > 0 && j.spec.IsWarning != nil && j.spec.IsWarning(code):
		logger.Warn("process exited with a warning", zap.Int("exitCode", code), zap.String("stderr", lastLines(stderr, 3)))

	case waitErr != nil:
		r.Kind, r.Err = failure.NonZeroExit, waitErr
		if r.Message = lastLines(stderr, 5); r.Message == "" {
			r.Message = waitErr.Error()
		}
		return r
	}

	if p := s.parser; p != nil && p.Parsed() == 0 {
		switch {
		case p.Rejected() > 0:
			r.Kind = failure.MalformedListingLine
			r.Message = fmt.Sprintf("none of the %d entries in the listing could be parsed", p.Rejected())
			return r
		case j.spec.Columns.HeaderMarker != "" && !p.SawHeader() && s.bytes > 0:
			r.Kind = failure.MalformedListingLine
			r.Message = "the listing did not have the expected header"
			return r
		}
	}

	r.Success = true
	r.Kind = failure.None
	return r
}

// lastLines returns up to n trailing non-empty lines of s.
func lastLines(s string, n int) string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
