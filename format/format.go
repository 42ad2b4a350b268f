// Package format identifies archive formats by file name and by content.
package format

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mholt/archives"
	"github.com/nguyengg/arkive/failure"
)

// Format identifies an archive format independently of the tool used to read it.
type Format string

const (
	Unknown  Format = ""
	Tar      Format = "tar"
	TarGz    Format = "tar.gz"
	TarBz2   Format = "tar.bz2"
	TarXz    Format = "tar.xz"
	TarZst   Format = "tar.zst"
	Zip      Format = "zip"
	Rar      Format = "rar"
	SevenZip Format = "7z"
	Lha      Format = "lha"
	Zoo      Format = "zoo"
	Ace      Format = "ace"
	Ar       Format = "ar"
)

// All lists every known format.
var All = []Format{Tar, TarGz, TarBz2, TarXz, TarZst, Zip, Rar, SevenZip, Lha, Zoo, Ace, Ar}

// IsTar returns true for plain and compressed tar archives.
func (f Format) IsTar() bool {
	return f == Tar || strings.HasPrefix(string(f), "tar.")
}

// Parse resolves a user-supplied format name such as "tgz", "7z", or ".tar.gz".
func Parse(name string) (Format, error) {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	for _, f := range All {
		if string(f) == name {
			return f, nil
		}
	}

	if f, ok := FromExt("x." + name); ok {
		return f, nil
	}

	return Unknown, failure.New(failure.UnknownOrCorruptFormat, "unknown archive format %q", name)
}

// extensions is ordered so that longer suffixes are tried first.
var extensions = []struct {
	ext    string
	format Format
}{
	{".tar.gz", TarGz},
	{".tar.bz2", TarBz2},
	{".tar.xz", TarXz},
	{".tar.zst", TarZst},
	{".tgz", TarGz},
	{".tbz2", TarBz2},
	{".tbz", TarBz2},
	{".txz", TarXz},
	{".tzst", TarZst},
	{".tar", Tar},
	{".zip", Zip},
	{".jar", Zip},
	{".xpi", Zip},
	{".rar", Rar},
	{".7z", SevenZip},
	{".lha", Lha},
	{".lzh", Lha},
	{".zoo", Zoo},
	{".ace", Ace},
	{".a", Ar},
	{".deb", Ar},
}

// FromExt identifies the format from the file name alone.
func FromExt(name string) (Format, bool) {
	lower := strings.ToLower(name)
	for _, e := range extensions {
		if strings.HasSuffix(lower, e.ext) {
			return e.format, true
		}
	}

	return Unknown, false
}

// magic is a signature at a fixed offset.
type magic struct {
	offset int
	bytes  []byte
	format Format
}

var magics = []magic{
	{0, []byte("PK\x03\x04"), Zip},
	{0, []byte("PK\x05\x06"), Zip},
	{0, []byte("Rar!\x1a\x07"), Rar},
	{0, []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}, SevenZip},
	{0, []byte("!<arch>\n"), Ar},
	{20, []byte{0xDC, 0xA7, 0xC4, 0xFD}, Zoo},
	{7, []byte("**ACE**"), Ace},
	{257, []byte("ustar"), Tar},
	{0, []byte{0x1F, 0x8B}, TarGz},
	{0, []byte("BZh"), TarBz2},
	{0, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, TarXz},
	{0, []byte{0x28, 0xB5, 0x2F, 0xFD}, TarZst},
}

// headerLength is enough to cover every signature in magics.
const headerLength = 512

// Sniff identifies the format from the first bytes of the content.
//
// Compressed streams are assumed to hold a tar archive. Sniff returns false if no signature matches.
func Sniff(header []byte) (Format, bool) {
	for _, m := range magics {
		if len(header) >= m.offset+len(m.bytes) && bytes.Equal(header[m.offset:m.offset+len(m.bytes)], m.bytes) {
			return m.format, true
		}
	}

	// lha headers carry the method id such as "-lh5-" at offset 2.
	if len(header) >= 7 && header[2] == '-' && header[3] == 'l' && (header[4] == 'h' || header[4] == 'z') && header[6] == '-' {
		return Lha, true
	}

	return Unknown, false
}

// Identify identifies the named file using its extension first, then its content if the file exists.
//
// If the signature table is inconclusive, the content is offered to the archives library's own identification.
// Returns an error of kind failure.UnknownOrCorruptFormat if nothing claims the file.
func Identify(ctx context.Context, name string) (Format, error) {
	if f, ok := FromExt(name); ok {
		return f, nil
	}

	file, err := os.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Unknown, failure.New(failure.UnknownOrCorruptFormat, `cannot tell the format of "%s" from its name`, name)
		}

		return Unknown, fmt.Errorf(`open file "%s" error: %w`, name, err)
	}
	defer file.Close()

	header := make([]byte, headerLength)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Unknown, fmt.Errorf(`read header of "%s" error: %w`, name, err)
	}

	if f, ok := Sniff(header[:n]); ok {
		return f, nil
	}

	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return Unknown, fmt.Errorf("seek start error: %w", err)
	}

	af, _, err := archives.Identify(ctx, "", file)
	if err != nil {
		if errors.Is(err, archives.NoMatch) {
			return Unknown, failure.New(failure.UnknownOrCorruptFormat, `no backend recognises the content of "%s"`, name)
		}

		return Unknown, fmt.Errorf(`identify "%s" error: %w`, name, err)
	}

	if f, ok := FromExt("x" + af.Extension()); ok {
		return f, nil
	}

	return Unknown, failure.New(failure.UnknownOrCorruptFormat, `unsupported archive format "%s" for "%s"`, af.Extension(), name)
}
