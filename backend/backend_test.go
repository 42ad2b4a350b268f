package backend

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLookPath resolves only the given executables, to "/usr/bin/<name>".
func fakeLookPath(available ...string) func(*Options) {
	return func(opts *Options) {
		opts.LookPath = func(file string) (string, error) {
			for _, name := range available {
				if name == file {
					return "/usr/bin/" + name, nil
				}
			}

			return "", errors.New("executable file not found in $PATH")
		}
	}
}

func TestNew_UtilityNotFound(t *testing.T) {
	_, err := New(Zip, "test.zip", format.Zip, fakeLookPath("zip"))
	assert.ErrorIs(t, err, failure.ErrUtilityNotFound)
	assert.ErrorContains(t, err, "unzip")

	_, err = New(Rar, "test.rar", format.Rar, fakeLookPath("unrar"), func(opts *Options) {
		opts.RequireArchiver = true
	})
	assert.ErrorIs(t, err, failure.ErrUtilityNotFound)
}

func TestNew_MissingArchiverIsReadOnly(t *testing.T) {
	d, err := New(Rar, "test.rar", format.Rar, fakeLookPath("unrar"))
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/unrar", d.Unarchiver())
	assert.False(t, d.Operations().Has(Add))
	assert.False(t, d.Operations().Has(Delete))
	assert.True(t, d.Operations().Has(Extract|View|Integrity))

	_, err = d.AddCommand([]string{"a.txt"}, AddOptions{})
	assert.ErrorIs(t, err, failure.ErrUtilityNotFound)
}

func TestNew_CandidatesAndOverrides(t *testing.T) {
	d, err := New(SevenZip, "test.7z", format.SevenZip, fakeLookPath("7zz", "7za"))
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/7za", d.Unarchiver(), "candidates are tried in order")

	d, err = New(SevenZip, "test.7z", format.SevenZip, fakeLookPath("7z", "p7zip"), func(opts *Options) {
		opts.Unarchiver = "p7zip"
	})
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/p7zip", d.Unarchiver())
	assert.Equal(t, "/usr/bin/7z", d.Archiver())

	_, err = New(Ace, "test.ace", format.Zip, fakeLookPath("unace"))
	assert.ErrorIs(t, err, failure.ErrUnsupported)
}

func TestDriver_CompressedTarIsReadOnly(t *testing.T) {
	d, err := New(Tar, "test.tar.gz", format.TarGz, fakeLookPath("tar"))
	require.NoError(t, err)
	assert.False(t, d.Operations().Has(Add))
	assert.Equal(t, []string{"-z", "-tvf", d.Archive()}, d.ListCommand("").Args)

	_, err = d.DeleteCommand([]string{"a.txt"})
	assert.ErrorIs(t, err, failure.ErrUnsupported)
}

func TestDriver_ExtractCommand(t *testing.T) {
	dest := t.TempDir()

	tests := []struct {
		kind   Kind
		format format.Format
		opts   ExtractOptions
		paths  []string
		want   []string
		dir    bool
	}{
		{
			kind:   Tar,
			format: format.Tar,
			paths:  []string{"docs/"},
			want:   []string{"-xvf", "ARCHIVE", "-C", dest, "--skip-old-files", "docs"},
		},
		{
			kind:   Tar,
			format: format.TarXz,
			opts:   ExtractOptions{Overwrite: true, JunkPaths: true},
			want:   []string{"-J", "-xvf", "ARCHIVE", "-C", dest, "--overwrite", "--transform=s,.*/,,"},
		},
		{
			kind:   Zip,
			format: format.Zip,
			opts:   ExtractOptions{Overwrite: true, JunkPaths: true, Password: "secret"},
			paths:  []string{"a.txt"},
			want:   []string{"-o", "-j", "-P", "secret", "ARCHIVE", "a.txt", "-d", dest},
		},
		{
			kind:   Rar,
			format: format.Rar,
			want:   []string{"x", "-o-", "-p-", "ARCHIVE", dest + string(filepath.Separator)},
		},
		{
			kind:   SevenZip,
			format: format.SevenZip,
			opts:   ExtractOptions{Overwrite: true, Password: "secret"},
			want:   []string{"x", "-aoa", "-o" + dest, "-psecret", "ARCHIVE"},
		},
		{
			kind:   Lha,
			format: format.Lha,
			opts:   ExtractOptions{Overwrite: true, JunkPaths: true},
			want:   []string{"xfiw=" + dest, "ARCHIVE"},
		},
		{
			kind:   Zoo,
			format: format.Zoo,
			want:   []string{"xN", "ARCHIVE"},
			dir:    true,
		},
		{
			kind:   Ace,
			format: format.Ace,
			opts:   ExtractOptions{JunkPaths: true},
			want:   []string{"e", "-y", "ARCHIVE", dest + string(filepath.Separator)},
		},
		{
			kind:   Ar,
			format: format.Ar,
			paths:  []string{"a.o"},
			want:   []string{"xo", "ARCHIVE", "a.o"},
			dir:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			d, err := New(tt.kind, "test", tt.format, fakeLookPath("tar", "zip", "unzip", "rar", "unrar", "7z", "lha", "zoo", "unace", "ar"))
			require.NoError(t, err)

			cmd, err := d.ExtractCommand(tt.paths, dest, tt.opts)
			require.NoError(t, err)

			want := make([]string, len(tt.want))
			for i, arg := range tt.want {
				if arg == "ARCHIVE" {
					arg = d.Archive()
				}
				want[i] = arg
			}
			assert.Equal(t, want, cmd.Args)

			if tt.dir {
				assert.Equal(t, dest, cmd.Dir)
			} else {
				assert.Empty(t, cmd.Dir)
			}

			_, err = d.ExtractCommand(tt.paths, "", tt.opts)
			assert.ErrorIs(t, err, failure.ErrNoDestinationDirectory)
		})
	}
}

func TestDriver_AddCommand(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "docs")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0644))
	require.NoError(t, os.Mkdir(b, 0755))

	lookPath := fakeLookPath("tar", "zip", "unzip", "rar", "unrar", "7z", "lha", "zoo", "ar")

	t.Run("zip", func(t *testing.T) {
		d, err := New(Zip, filepath.Join(dir, "out.zip"), format.Zip, lookPath)
		require.NoError(t, err)

		cmd, err := d.AddCommand([]string{a, b, a}, AddOptions{
			RecurseDirectories: true,
			UpdateOnlyIfNewer:  true,
			ForceMSDOSCase:     true,
			ConvertLinefeeds:   true,
			StoreSymlinks:      true,
			Password:           "secret",
		})
		require.NoError(t, err)
		assert.Equal(t, dir, cmd.Dir)
		assert.Equal(t, []string{"-r", "-u", "-k", "-l", "-y", "-P", "secret", d.Archive(), "a.txt", "docs"}, cmd.Args)
		assert.NotContains(t, cmd.String(), "secret")
	})

	t.Run("tar", func(t *testing.T) {
		d, err := New(Tar, filepath.Join(dir, "out.tar"), format.Tar, lookPath)
		require.NoError(t, err)
		assert.True(t, d.DuplicatesOnAppend())

		cmd, err := d.AddCommand([]string{a, b}, AddOptions{RecurseDirectories: true, StoreSymlinks: true})
		require.NoError(t, err)
		assert.Empty(t, cmd.Dir)
		assert.Equal(t, []string{"-r", "-v", "-f", d.Archive(), "-C", dir, "a.txt", "docs"}, cmd.Args)
		assert.Equal(t, []string{"a.txt", "docs"}, d.MemberNames([]string{a, b}, AddOptions{}))

		cmd, err = d.AddCommand([]string{a}, AddOptions{UpdateOnlyIfNewer: true, JunkDirectoryNames: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"-u", "-v", "-h", "--no-recursion", "-f", d.Archive(), "-C", dir, "a.txt"}, cmd.Args)
	})

	t.Run("rar", func(t *testing.T) {
		d, err := New(Rar, filepath.Join(dir, "out.rar"), format.Rar, lookPath)
		require.NoError(t, err)

		cmd, err := d.AddCommand([]string{a}, AddOptions{RecurseDirectories: true, JunkDirectoryNames: true, Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "-r", "-ep", "-ppw", "-y", d.Archive(), "a.txt"}, cmd.Args)
		assert.Equal(t, dir, cmd.Dir)
	})

	t.Run("7z", func(t *testing.T) {
		d, err := New(SevenZip, filepath.Join(dir, "out.7z"), format.SevenZip, lookPath)
		require.NoError(t, err)

		cmd, err := d.AddCommand([]string{b}, AddOptions{StoreSymlinks: true, Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "-r-", "-snl", "-ppw", "-mhe=on", d.Archive(), "docs"}, cmd.Args)
		assert.Equal(t, dir, cmd.Dir)
		assert.Contains(t, cmd.String(), " -p*** ")
		assert.NotContains(t, cmd.String(), "-ppw")
	})

	t.Run("store full path", func(t *testing.T) {
		d, err := New(Ar, filepath.Join(dir, "out.a"), format.Ar, lookPath)
		require.NoError(t, err)

		cmd, err := d.AddCommand([]string{a}, AddOptions{StoreFullPath: true})
		require.NoError(t, err)
		assert.Empty(t, cmd.Dir)
		assert.Equal(t, []string{"r", d.Archive(), a}, cmd.Args)
	})

	t.Run("create", func(t *testing.T) {
		d, err := New(Ar, filepath.Join(dir, "out.a"), format.Ar, lookPath)
		require.NoError(t, err)
		cmd, ok, err := d.CreateCommand()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"rc", d.Archive()}, cmd.Args)

		d, err = New(Zip, filepath.Join(dir, "out.zip"), format.Zip, lookPath)
		require.NoError(t, err)
		_, ok, err = d.CreateCommand()
		require.NoError(t, err)
		assert.False(t, ok, "zip archives are created by the first add")
	})
}

func TestDetectPasswordRequired(t *testing.T) {
	tests := []struct {
		kind   Kind
		stderr string
		want   bool
	}{
		{Zip, "   skipping: secret.txt                incorrect password\n", true},
		{Zip, "unzip: unable to get password\n", true},
		{Zip, "unzip:  cannot find or open test.zip\n", false},
		{Rar, "\nThe specified password is incorrect.\n", true},
		{Rar, "ERROR: Unknown archive format\n", false},
		{Rar, "Password incorrect\n", true},
		{Rar, "Enter password (will not be echoed) for secret.txt: ", true},
		{SevenZip, "ERROR: Wrong password : secret.txt\n", true},
		{SevenZip, "ERROR: test.7z\nCan not open encrypted archive. Wrong password?\n", true},
		{Tar, "tar: incorrect password\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			d, ok := Lookup(tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.want, d.DetectPasswordRequired(tt.stderr), tt.stderr)
		})
	}
}

func TestRegistry(t *testing.T) {
	ds := For(format.Zip)
	require.Len(t, ds, 2)
	assert.Equal(t, Zip, ds[0].Kind)
	assert.Equal(t, SevenZip, ds[1].Kind)

	for _, d := range Descriptors() {
		k, ok := ParseKind(d.Kind.String())
		assert.True(t, ok)
		assert.Equal(t, d.Kind, k)
		assert.NotNil(t, d.List, d.Kind.String())
		assert.NoError(t, d.Spec.Validate())
	}

	assert.Equal(t, "extract|view|integrity", aceDescriptor.Operations.String())
}
