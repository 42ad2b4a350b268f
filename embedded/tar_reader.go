package embedded

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"iter"
)

// tarFile is a member being read, whose contents are available from the embedded reader until the next iteration.
type tarFile struct {
	*tar.Reader
	*tar.Header
}

// tarFiles produces an iterator over the members of the tar archive read from src.
//
// Iteration stops after the first error.
func tarFiles(src io.Reader) iter.Seq2[*tarFile, error] {
	tr := tar.NewReader(src)

	return func(yield func(*tarFile, error) bool) {
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, tar.ErrHeader) {
					err = fmt.Errorf("%w: %w", errNotTar, err)
				}

				yield(nil, err)
				return
			}

			if !yield(&tarFile{Reader: tr, Header: hdr}, nil) {
				return
			}
		}
	}
}
