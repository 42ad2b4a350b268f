// Package codec provides the stream compressors wrapping compressed tar archives.
package codec

import (
	"io"

	"github.com/nguyengg/arkive/format"
)

// Codec has methods to create compressor/encoder and decompressor/decoder.
type Codec interface {
	// NewDecoder creates a decoder to decompress contents from the given io.Reader.
	NewDecoder(src io.Reader) (io.ReadCloser, error)
	// NewEncoder creates an encoder to compress contents to the given io.Writer.
	NewEncoder(dst io.Writer) (io.WriteCloser, error)
	// Ext returns the extension of tar archives compressed with this codec, such as ".tar.gz".
	Ext() string
}

// For returns the codec of a compressed tar format.
//
// Returns nil for plain tar, and false for formats that are not tar at all.
func For(f format.Format) (Codec, bool) {
	switch f {
	case format.Tar:
		return nil, true
	case format.TarGz:
		return Gzip{}, true
	case format.TarBz2:
		return Bzip2{}, true
	case format.TarXz:
		return Xz{}, true
	case format.TarZst:
		return Zstd{}, true
	default:
		return nil, false
	}
}

// NewDecoder is a convenient method to create a decoder from a nil-able Codec.
//
// A nil Codec returns the src io.Reader as-is.
func NewDecoder(c Codec, src io.Reader) (io.ReadCloser, error) {
	if c == nil {
		return io.NopCloser(src), nil
	}

	return c.NewDecoder(src)
}

// NewEncoder is a convenient method to create an encoder from a nil-able Codec.
//
// A nil Codec returns the dst io.Writer as-is with a no-op Close.
func NewEncoder(c Codec, dst io.Writer) (io.WriteCloser, error) {
	if c == nil {
		return &nopWriteCloser{dst}, nil
	}

	return c.NewEncoder(dst)
}

type nopWriteCloser struct {
	io.Writer
}

func (w *nopWriteCloser) Close() error {
	return nil
}
