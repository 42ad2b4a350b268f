package arkive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// Registry keeps track of open archives by their resolved path, so that opening the same file twice shares one
// Archive.
//
// Registry is reference-counted: every Open must be matched by a Release, and the archive is closed with the last
// Release. The zero value is ready for use.
type Registry struct {
	mu       sync.Mutex
	archives map[string]*registered
}

type registered struct {
	a    *Archive
	refs int
}

// resolve returns the key of the given path.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf(`resolve absolute path of "%s" error: %w`, path, err)
	}

	if v, err := filepath.EvalSymlinks(abs); err == nil {
		abs = v
	}

	return abs, nil
}

// Open returns the archive already open at the given path, or opens it.
//
// The returned Operation is the listing started by Open, and is nil if the archive was already open.
func (r *Registry) Open(ctx context.Context, path string, optFns ...func(*Options)) (*Archive, *Operation, error) {
	key, err := resolve(path)
	if err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.archives[key]; ok {
		v.refs++
		return v.a, nil, nil
	}

	a, o, err := Open(ctx, key, optFns...)
	if err != nil {
		return nil, nil, err
	}

	if r.archives == nil {
		r.archives = make(map[string]*registered)
	}
	r.archives[key] = &registered{a: a, refs: 1}

	return a, o, nil
}

// Lookup returns the archive open at the given path without adding a reference.
func (r *Registry) Lookup(path string) (*Archive, bool) {
	key, err := resolve(path)
	if err != nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.archives[key]; ok {
		return v.a, true
	}

	return nil, false
}

// Len returns the number of open archives.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.archives)
}

// Release drops one reference to the archive, closing it when there is none left.
func (r *Registry) Release(a *Archive) error {
	r.mu.Lock()

	key, err := resolve(a.Path())
	if err != nil {
		r.mu.Unlock()
		return err
	}

	v, ok := r.archives[key]
	if !ok || v.a != a {
		r.mu.Unlock()
		return fmt.Errorf(`archive "%s" is not registered`, a.Path())
	}

	if v.refs--; v.refs > 0 {
		r.mu.Unlock()
		return nil
	}

	delete(r.archives, key)
	r.mu.Unlock()

	return a.Close()
}

// Close closes every archive regardless of their references.
func (r *Registry) Close() error {
	r.mu.Lock()
	archives := r.archives
	r.archives = nil
	r.mu.Unlock()

	var errs []error
	for _, v := range archives {
		if err := v.a.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
