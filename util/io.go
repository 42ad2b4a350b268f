package util

import (
	"context"
	"io"
)

type contextReader struct {
	ctx context.Context
	src io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	return r.src.Read(p)
}

// CopyWithContext is a variant of io.Copy that stops with ctx.Err() as soon as the context is done.
//
// The context is checked before every read so a large member stops being copied within one buffer of cancellation.
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, &contextReader{ctx: ctx, src: src})
}

// ChainCloser makes sure all the close functions are called at least once and will return the first error.
//
// The order of the functions assumes the first close function is the most important.
func ChainCloser(fn1 func() error, fn2 func() error, fns ...func() error) func() error {
	return func() error {
		err, err2 := fn1(), fn2()

		if err2 != nil && err == nil {
			err = err2
		}

		for _, fn := range fns {
			if err2 = fn(); err2 != nil && err == nil {
				err = err2
			}
		}

		return err
	}
}
