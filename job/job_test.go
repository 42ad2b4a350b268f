package job

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// shell returns a command that runs script with sh.
func shell(t *testing.T, script string) backend.Command {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}

	sh, err := exec.LookPath("sh")
	require.NoError(t, err)

	return backend.Command{Path: sh, Args: []string{"-c", script}}
}

func descriptor(t *testing.T, kind backend.Kind) *backend.Descriptor {
	t.Helper()

	d, ok := backend.Lookup(kind)
	require.True(t, ok)
	return d
}

// run starts a job and collects every event until the channel closes.
func run(t *testing.T, spec Spec) ([]entry.Entry, Result) {
	t.Helper()

	j := New(spec)
	require.NoError(t, j.Start(context.Background()))

	var (
		entries  []entry.Entry
		finished []Result
	)
	for e := range j.Events() {
		require.Empty(t, finished, "no event may follow OperationFinished")

		switch e.Kind {
		case EntryDiscovered:
			entries = append(entries, e.Entry)
		case OperationFinished:
			finished = append(finished, e.Result)
		}
	}

	require.Len(t, finished, 1)
	assert.Equal(t, Terminal, j.State())
	assert.Equal(t, finished[0], j.Wait())
	return entries, finished[0]
}

func paths(entries []entry.Entry) []string {
	var ps []string
	for _, e := range entries {
		ps = append(ps, e.Path)
	}
	return ps
}

func TestJob_List(t *testing.T) {
	tar := descriptor(t, backend.Tar)

	core, logs := observer.New(zapcore.DebugLevel)

	entries, r := run(t, Spec{
		Operation: List,
		// the first line arrives in two chunks, and the last line has no trailing newline.
		Command: shell(t, `printf '%s' '-rw-r--r-- user/group 12'
sleep 0.1
printf '%s\n' '34 2023-01-02 03:04 file.txt'
printf '%s\n' 'drwxr-xr-x user/group 0 2023-01-02 03:04 docs/'
printf '%s\n' '-rw-r--r-- user/group 1234 2023-01-02 03:04 file.txt'
printf '%s' '-rw-r--r-- user/group 5 2023-01-02 03:05 docs/readme -> ../file.txt'`),
		Columns:                tar.Spec,
		ParserOptions:          []func(*listing.ParserOptions){func(opts *listing.ParserOptions) { opts.Location = time.UTC }},
		DetectPasswordRequired: tar.DetectPasswordRequired,
		IsWarning:              tar.IsWarning,
		Logger:                 zap.New(core),
	})

	require.True(t, r.Success, "%+v", r)
	assert.NoError(t, r.Error())
	assert.Equal(t, List, r.Operation)
	assert.Equal(t, 0, r.ExitCode)
	assert.Equal(t, 3, r.Entries)
	assert.Equal(t, []string{"file.txt", "docs/", "docs/readme"}, paths(entries))

	assert.Equal(t, uint64(1234), entries[0].Size)
	assert.Equal(t, "-rw-r--r--", entries[0].Permissions)
	assert.Equal(t, time.Date(2023, 1, 2, 3, 4, 0, 0, time.UTC), entries[0].Modified)
	assert.True(t, entries[1].Dir)
	assert.Equal(t, "../file.txt", entries[2].LinkTarget)

	assert.Equal(t, 1, logs.FilterMessage("skipping duplicate entry").Len())
}

func TestJob_PasswordRequired(t *testing.T) {
	zip := descriptor(t, backend.Zip)

	_, r := run(t, Spec{
		Operation:              Extract,
		Command:                shell(t, `echo "   skipping: secret.txt              incorrect password" >&2; exit 82`),
		DetectPasswordRequired: zip.DetectPasswordRequired,
		IsWarning:              zip.IsWarning,
	})

	assert.False(t, r.Success)
	assert.Equal(t, failure.PasswordRequired, r.Kind)
	assert.Equal(t, 82, r.ExitCode)
	assert.Contains(t, r.Stderr, "incorrect password")
	assert.ErrorIs(t, r.Error(), failure.ErrPasswordRequired)
}

func TestJob_ExitCodes(t *testing.T) {
	zip := descriptor(t, backend.Zip)

	tests := []struct {
		name    string
		script  string
		want    failure.Kind
		code    int
		message string
	}{
		{
			name:    "non-zero exit carries stderr",
			script:  `echo "zip warning: name not matched: missing.txt" >&2; echo "zip error: Nothing to do!" >&2; exit 18`,
			want:    failure.NonZeroExit,
			code:    18,
			message: "zip warning: name not matched: missing.txt\nzip error: Nothing to do!",
		},
		{
			name:   "non-zero exit without stderr",
			script: `exit 3`,
			want:   failure.NonZeroExit,
			code:   3,
		},
		{
			name:   "warning code is success",
			script: `echo "warning: stripped absolute path spec" >&2; exit 1`,
			want:   failure.None,
			code:   1,
		},
		{
			name:   "zero exit",
			script: `echo "inflating: a.txt"`,
			want:   failure.None,
			code:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, r := run(t, Spec{
				Operation:              Extract,
				Command:                shell(t, tt.script),
				DetectPasswordRequired: zip.DetectPasswordRequired,
				IsWarning:              zip.IsWarning,
			})

			assert.Empty(t, entries)
			assert.Equal(t, tt.want, r.Kind)
			assert.Equal(t, tt.want == failure.None, r.Success)
			assert.Equal(t, tt.code, r.ExitCode)
			if tt.message != "" {
				assert.Equal(t, tt.message, r.Message)
			}
			if !r.Success {
				assert.NotEmpty(t, r.Message)
			}
		})
	}
}

func TestJob_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()

	cmd := shell(t, `test "$ARKIVE_TEST" = 1 && pwd >&2 && exit 4`)
	cmd.Dir = dir
	cmd.Env = []string{"ARKIVE_TEST=1"}

	_, r := run(t, Spec{Operation: Add, Command: cmd})
	assert.Equal(t, failure.NonZeroExit, r.Kind)
	assert.Equal(t, 4, r.ExitCode)

	got, err := filepath.EvalSymlinks(r.Message)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestJob_SpawnFailure(t *testing.T) {
	_, r := run(t, Spec{
		Operation: List,
		Command:   backend.Command{Path: filepath.Join(t.TempDir(), "does-not-exist")},
	})

	assert.False(t, r.Success)
	assert.Equal(t, failure.ProcessSpawnFailed, r.Kind)
	assert.Equal(t, -1, r.ExitCode)
	assert.ErrorIs(t, r.Error(), failure.ErrProcessSpawnFailed)
}

func TestJob_EmptyListing(t *testing.T) {
	zip := descriptor(t, backend.Zip)
	tar := descriptor(t, backend.Tar)

	tests := []struct {
		name    string
		columns *listing.Spec
		script  string
		want    failure.Kind
	}{
		{
			name:    "empty tar archive",
			columns: tar.Spec,
			script:  `exit 0`,
			want:    failure.None,
		},
		{
			name:    "empty zip archive",
			columns: zip.Spec,
			script: `echo "Archive:  empty.zip"
echo "  Length   Method    Size  Cmpr    Date    Time   CRC-32   Name"
echo "--------  ------  ------- ---- ---------- ----- --------  ----"
echo "--------          -------  ---                            -------"
echo "       0                0   0%                            0 files"`,
			want: failure.None,
		},
		{
			name:    "every line rejected",
			columns: tar.Spec,
			script:  `echo "this is not a listing"; echo "neither is this"`,
			want:    failure.MalformedListingLine,
		},
		{
			name:    "header never seen",
			columns: zip.Spec,
			script:  `echo "some other tool pretending to be unzip"`,
			want:    failure.MalformedListingLine,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, r := run(t, Spec{Operation: List, Command: shell(t, tt.script), Columns: tt.columns})
			assert.Empty(t, entries)
			assert.Equal(t, tt.want, r.Kind, "%+v", r)
		})
	}
}

func TestJob_Cancel(t *testing.T) {
	tar := descriptor(t, backend.Tar)

	j := New(Spec{
		Operation: List,
		Command:   shell(t, `echo '-rw-r--r-- user/group 1234 2023-01-02 03:04 file.txt'; exec sleep 30`),
		Columns:   tar.Spec,
	})
	require.NoError(t, j.Start(context.Background()))

	e := <-j.Events()
	require.Equal(t, EntryDiscovered, e.Kind)
	assert.Equal(t, "file.txt", e.Entry.Path)
	require.Eventually(t, func() bool { return j.State() == Streaming }, time.Second, 10*time.Millisecond)

	start := time.Now()
	require.NoError(t, j.Cancel())

	e = <-j.Events()
	require.Equal(t, OperationFinished, e.Kind)
	assert.Equal(t, failure.Cancelled, e.Result.Kind)
	assert.Equal(t, 1, e.Result.Entries)
	assert.Less(t, time.Since(start), waitDelay)

	_, ok := <-j.Events()
	assert.False(t, ok)

	// too late now.
	assert.ErrorIs(t, j.Cancel(), failure.ErrBusy)
	assert.ErrorIs(t, j.Start(context.Background()), failure.ErrBusy)
}

func TestJob_CancelBeforeStart(t *testing.T) {
	j := New(Spec{Operation: Test, Command: shell(t, `exec sleep 30`)})
	require.NoError(t, j.Cancel())
	require.NoError(t, j.Start(context.Background()))

	r := j.Wait()
	assert.Equal(t, failure.Cancelled, r.Kind)
}

func TestJob_Listener(t *testing.T) {
	var events []Event

	j := New(Spec{
		Operation: List,
		Worker: func(ctx context.Context, post func(entry.Entry)) error {
			post(entry.New("a.txt", false))
			post(entry.New("b/", true))
			return nil
		},
		Listener: func(e Event) {
			events = append(events, e)
		},
	})
	assert.Nil(t, j.Events())

	require.NoError(t, j.Start(context.Background()))
	r := j.Wait()

	require.True(t, r.Success)
	assert.Equal(t, 2, r.Entries)
	require.Len(t, events, 3)
	assert.Equal(t, "a.txt", events[0].Entry.Path)
	assert.Equal(t, "b/", events[1].Entry.Path)
	assert.Equal(t, OperationFinished, events[2].Kind)
}

func TestJob_Worker(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    failure.Kind
		entries int
	}{
		{name: "success", want: failure.None, entries: 2},
		{name: "plain error", err: errors.New("unexpected EOF"), want: failure.UnknownOrCorruptFormat, entries: 2},
		{name: "kind is kept", err: failure.New(failure.PasswordRequired, "encrypted"), want: failure.PasswordRequired, entries: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, r := run(t, Spec{
				Operation: List,
				Worker: func(ctx context.Context, post func(entry.Entry)) error {
					post(entry.New("a.txt", false))
					post(entry.New("b.txt", false))
					return tt.err
				},
			})

			assert.Len(t, entries, tt.entries)
			assert.Equal(t, tt.want, r.Kind)
			assert.Equal(t, tt.err == nil, r.Success)
			assert.Equal(t, -1, r.ExitCode)
			if tt.err != nil {
				assert.ErrorIs(t, r.Error(), tt.err)
			}
		})
	}
}

func TestJob_WorkerCancel(t *testing.T) {
	started := make(chan struct{})

	j := New(Spec{
		Operation: Extract,
		Worker: func(ctx context.Context, post func(entry.Entry)) error {
			post(entry.New("a.txt", false))
			close(started)
			<-ctx.Done()
			post(entry.New("b.txt", false))
			return ctx.Err()
		},
	})
	require.NoError(t, j.Start(context.Background()))

	<-started
	require.NoError(t, j.Cancel())

	var kinds []EventKind
	for e := range j.Events() {
		kinds = append(kinds, e.Kind)
	}

	assert.Equal(t, []EventKind{EntryDiscovered, OperationFinished}, kinds)
	assert.Equal(t, failure.Cancelled, j.Wait().Kind)
	assert.Equal(t, 1, j.Wait().Entries)
}

func TestJob_WorkerDuplicates(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	entries, r := run(t, Spec{
		Operation: List,
		Worker: func(ctx context.Context, post func(entry.Entry)) error {
			post(entry.New("a.txt", false))
			post(entry.New("b.txt", false))
			post(entry.New("a.txt", false))
			return nil
		},
		Logger: zap.New(core),
	})

	require.True(t, r.Success, "%+v", r)
	assert.Equal(t, 2, r.Entries)
	assert.Equal(t, []string{"a.txt", "b.txt"}, paths(entries))
	assert.Equal(t, 1, logs.FilterMessage("skipping duplicate entry").Len())
}

func TestController(t *testing.T) {
	var c Controller
	assert.False(t, c.InProgress())
	assert.False(t, c.Cancel())

	res, err := c.Reserve()
	require.NoError(t, err)
	assert.True(t, c.InProgress())

	_, err = c.Reserve()
	assert.ErrorIs(t, err, failure.ErrBusy)

	_, err = c.Run(context.Background(), Spec{Operation: List, Worker: func(context.Context, func(entry.Entry)) error { return nil }})
	assert.ErrorIs(t, err, failure.ErrBusy)

	release := make(chan struct{})
	j, err := res.Start(context.Background(), Spec{
		Operation: Delete,
		Worker: func(ctx context.Context, post func(entry.Entry)) error {
			<-release
			return nil
		},
	})
	require.NoError(t, err)

	// one job at a time, even within the same reservation.
	_, err = res.Start(context.Background(), Spec{Operation: Add, Worker: func(context.Context, func(entry.Entry)) error { return nil }})
	assert.ErrorIs(t, err, failure.ErrBusy)

	close(release)
	for range j.Events() {
	}
	require.True(t, j.Wait().Success)

	j, err = res.Start(context.Background(), Spec{Operation: Add, Worker: func(context.Context, func(entry.Entry)) error { return nil }})
	require.NoError(t, err)
	for range j.Events() {
	}

	// cancelling the reservation stops the rest of the sequence.
	assert.True(t, c.Cancel())
	assert.True(t, res.Cancelled())
	_, err = res.Start(context.Background(), Spec{Operation: List, Worker: func(context.Context, func(entry.Entry)) error { return nil }})
	assert.ErrorIs(t, err, failure.ErrCancelled)

	res.Release()
	res.Release()
	assert.False(t, c.InProgress())

	r, err := c.Run(context.Background(), Spec{Operation: List, Worker: func(ctx context.Context, post func(entry.Entry)) error {
		post(entry.New("a.txt", false))
		return nil
	}})
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Equal(t, 1, r.Entries)
	assert.False(t, c.InProgress())
}

func TestMailbox(t *testing.T) {
	m := NewMailbox[int]()
	for i := range 1000 {
		m.Put(i)
	}
	m.Close()
	m.Put(1000)

	var got []int
	for v := range m.C() {
		got = append(got, v)
	}

	require.Len(t, got, 1000)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestMailbox_NeverRead(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := range 100 {
		m := NewMailbox[int]()
		m.Put(i)
		m.Close()
	}

	assert.LessOrEqual(t, runtime.NumGoroutine(), before+5)
}
