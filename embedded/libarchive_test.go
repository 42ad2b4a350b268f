package embedded

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nguyengg/arkive/backend"
	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, name string, files map[string]string) {
	t.Helper()

	f, err := os.Create(name)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, path := range []string{"a.txt", "docs/", "docs/b.txt"} {
		content, ok := files[path]
		if !ok {
			continue
		}

		w, err := zw.Create(path)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestLibarchive_Zip(t *testing.T) {
	ctx := context.Background()
	name := filepath.Join(t.TempDir(), "test.zip")
	writeZip(t, name, map[string]string{"a.txt": "hello", "docs/": "", "docs/b.txt": "world"})

	l := NewLibarchive(name)
	assert.False(t, l.Operations().Has(backend.Add))

	entries := list(t, l)
	assert.Equal(t, []string{"a.txt", "docs/", "docs/b.txt"}, paths(entries))
	assert.True(t, entries[1].Dir)
	assert.Equal(t, uint64(5), entries[0].Size)

	dest := t.TempDir()
	var extracted []string
	require.NoError(t, l.Extract(ctx, []string{"docs"}, dest, backend.ExtractOptions{}, func(e entry.Entry) {
		extracted = append(extracted, e.Path)
	}))
	assert.Equal(t, []string{"docs/", "docs/b.txt"}, extracted)

	data, err := os.ReadFile(filepath.Join(dest, "docs", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))
	assert.NoFileExists(t, filepath.Join(dest, "a.txt"))

	var tested int
	require.NoError(t, l.Test(ctx, "", func(entry.Entry) {
		tested++
	}))
	assert.Equal(t, 3, tested)

	assert.ErrorIs(t, l.Add(ctx, []string{name}, backend.AddOptions{}), failure.ErrUnsupported)
	assert.ErrorIs(t, l.Delete(ctx, []string{"a.txt"}), failure.ErrUnsupported)
	assert.ErrorIs(t, l.Create(ctx), failure.ErrUnsupported)
}

func TestLibarchive_CompressedTar(t *testing.T) {
	ctx := context.Background()
	name := filepath.Join(t.TempDir(), "test.tar.zst")

	tb, err := NewTar(name, format.TarZst)
	require.NoError(t, err)
	require.NoError(t, tb.Add(ctx, []string{fixture(t)}, backend.AddOptions{RecurseDirectories: true}))

	assert.Equal(t, paths(list(t, tb)), paths(list(t, NewLibarchive(name))))
}

func TestLibarchive_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	err := NewLibarchive(filepath.Join(dir, "missing.zip")).List(ctx, "", func(entry.Entry) {})
	assert.ErrorIs(t, err, failure.ErrUnknownOrCorruptFormat)

	name := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(name, []byte("just some notes\n"), 0644))
	err = NewLibarchive(name).List(ctx, "", func(entry.Entry) {})
	assert.ErrorIs(t, err, failure.ErrUnknownOrCorruptFormat)

	err = NewLibarchive(name).Extract(ctx, nil, "", backend.ExtractOptions{}, func(entry.Entry) {})
	assert.ErrorIs(t, err, failure.ErrNoDestinationDirectory)
}
