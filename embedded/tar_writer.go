package embedded

import (
	"archive/tar"
	"fmt"
	"io"
	"os"

	"github.com/nguyengg/arkive/codec"
)

type tarWriter struct {
	*tar.Writer
	enc io.WriteCloser
}

func newTarWriter(dst io.Writer, c codec.Codec) (*tarWriter, error) {
	enc, err := codec.NewEncoder(c, dst)
	if err != nil {
		return nil, err
	}

	return &tarWriter{Writer: tar.NewWriter(enc), enc: enc}, nil
}

// copy writes an existing member as-is.
func (w *tarWriter) copy(hdr *tar.Header, src io.Reader) error {
	if err := w.WriteHeader(hdr); err != nil {
		return fmt.Errorf(`write header of "%s" error: %w`, hdr.Name, err)
	}

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf(`copy member "%s" error: %w`, hdr.Name, err)
	}

	return nil
}

// add writes a file from disk.
func (w *tarWriter) add(f *pending) error {
	var link string
	if f.fi.Mode()&os.ModeSymlink != 0 {
		var err error
		if link, err = os.Readlink(f.disk); err != nil {
			return fmt.Errorf(`read link "%s" error: %w`, f.disk, err)
		}
	}

	hdr, err := tar.FileInfoHeader(f.fi, link)
	if err != nil {
		return fmt.Errorf(`create header for "%s" error: %w`, f.disk, err)
	}
	hdr.Name = f.name

	if err = w.WriteHeader(hdr); err != nil {
		return fmt.Errorf(`write header of "%s" error: %w`, f.name, err)
	}

	if !f.fi.Mode().IsRegular() {
		return nil
	}

	src, err := os.Open(f.disk)
	if err != nil {
		return fmt.Errorf(`open file "%s" error: %w`, f.disk, err)
	}
	defer src.Close()

	if _, err = io.Copy(w, src); err != nil {
		return fmt.Errorf(`write file "%s" error: %w`, f.disk, err)
	}

	return nil
}

func (w *tarWriter) close() error {
	if err := w.Close(); err != nil {
		_ = w.enc.Close()
		return err
	}

	return w.enc.Close()
}
