package codec

import (
	"compress/gzip"
	"io"
)

// Gzip implements Codec for gzip compression algorithm.
type Gzip struct {
}

var _ Codec = Gzip{}

func (c Gzip) NewDecoder(src io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(src)
}

func (c Gzip) NewEncoder(dst io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(dst, gzip.BestCompression)
}

func (c Gzip) Ext() string {
	return ".tar.gz"
}
