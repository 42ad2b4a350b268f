package backend

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/nguyengg/arkive/failure"
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/listing"
	"github.com/samber/lo"
)

// Options customises New.
type Options struct {
	// Archiver overrides the candidate archiver executables of the descriptor.
	Archiver string
	// Unarchiver overrides the candidate unarchiver executables of the descriptor.
	Unarchiver string
	// RequireArchiver fails New if the archiver cannot be found, rather than only disabling Add and Delete.
	RequireArchiver bool
	// LookPath resolves executables. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

// Driver is a Descriptor bound to one archive, with its executables resolved.
//
// Driver only builds commands. Running them is the job of package job.
type Driver struct {
	desc       *Descriptor
	target     Target
	archiver   string
	unarchiver string
	// archiverErr is the lookup error of the archiver, if any.
	archiverErr error
}

// New creates a Driver of the given kind for the given archive.
//
// The executables are resolved eagerly: if no unarchiver can be found then an error of kind failure.UtilityNotFound is
// returned. A missing archiver only removes Add and Delete from the supported operations, unless
// Options.RequireArchiver is given.
func New(kind Kind, archive string, f format.Format, optFns ...func(*Options)) (*Driver, error) {
	desc, ok := Lookup(kind)
	if !ok {
		return nil, failure.New(failure.Unsupported, "no %s backend is registered", kind)
	}

	return NewFromDescriptor(desc, archive, f, optFns...)
}

// NewFromDescriptor is a variant of New that accepts a Descriptor that may not have been registered.
func NewFromDescriptor(desc *Descriptor, archive string, f format.Format, optFns ...func(*Options)) (*Driver, error) {
	opts := &Options{LookPath: exec.LookPath}
	for _, fn := range optFns {
		fn(opts)
	}

	if f == format.Unknown {
		f = desc.Formats[0]
	} else if !desc.Handles(f) {
		return nil, failure.New(failure.Unsupported, "%s backend does not handle %s archives", desc.Kind, f)
	}

	abs, err := filepath.Abs(archive)
	if err != nil {
		return nil, fmt.Errorf(`resolve absolute path of "%s" error: %w`, archive, err)
	}

	d := &Driver{desc: desc, target: Target{Archive: abs, Format: f}}

	if d.unarchiver, err = lookPath(opts.LookPath, opts.Unarchiver, desc.Unarchivers); err != nil {
		return nil, err
	}

	if len(desc.Archivers) != 0 || opts.Archiver != "" {
		if d.archiver, d.archiverErr = lookPath(opts.LookPath, opts.Archiver, desc.Archivers); d.archiverErr != nil && opts.RequireArchiver {
			return nil, d.archiverErr
		}
	} else {
		d.archiverErr = failure.New(failure.Unsupported, "%s backend is read-only", desc.Kind)
		if opts.RequireArchiver {
			return nil, d.archiverErr
		}
	}

	return d, nil
}

// lookPath returns the first candidate that resolves, or the override if given.
func lookPath(fn func(string) (string, error), override string, candidates []string) (string, error) {
	if override != "" {
		candidates = []string{override}
	}

	var errs []error
	for _, name := range candidates {
		path, err := fn(name)
		if err == nil {
			return path, nil
		}

		errs = append(errs, err)
	}

	return "", failure.Wrap(failure.UtilityNotFound, errors.Join(errs...), "none of [%s] could be found", strings.Join(candidates, ", "))
}

// Descriptor returns the descriptor of the driver.
func (d *Driver) Descriptor() *Descriptor {
	return d.desc
}

// Kind returns the kind of the descriptor.
func (d *Driver) Kind() Kind {
	return d.desc.Kind
}

// Archive returns the absolute path to the archive.
func (d *Driver) Archive() string {
	return d.target.Archive
}

// Format returns the format of the archive.
func (d *Driver) Format() format.Format {
	return d.target.Format
}

// Archiver returns the resolved archiver executable, empty if none was found.
func (d *Driver) Archiver() string {
	return d.archiver
}

// Unarchiver returns the resolved unarchiver executable.
func (d *Driver) Unarchiver() string {
	return d.unarchiver
}

// Operations returns the operations supported by this driver for its archive.
func (d *Driver) Operations() Operations {
	ops := d.desc.OperationsFor(d.target.Format)
	if d.archiverErr != nil {
		ops &^= Add | Delete
	}

	return ops
}

// ColumnSpec returns the listing layout of the unarchiver.
func (d *Driver) ColumnSpec() *listing.Spec {
	return d.desc.Spec
}

// DetectPasswordRequired returns true if the accumulated stderr means a password is missing or wrong.
func (d *Driver) DetectPasswordRequired(stderr string) bool {
	return d.desc.DetectPasswordRequired(stderr)
}

// IsWarning returns true if the exit code still means success.
func (d *Driver) IsWarning(code int) bool {
	return d.desc.IsWarning(code)
}

// DuplicatesOnAppend returns true if existing members must be deleted before adding them again.
func (d *Driver) DuplicatesOnAppend() bool {
	return d.desc.DuplicatesOnAppend
}

func (d *Driver) targetWith(password string) Target {
	t := d.target
	t.Password = password
	return t
}

func (d *Driver) check(op Operations) error {
	if d.Operations().Has(op) {
		return nil
	}

	if op&(Add|Delete) != 0 && d.archiverErr != nil {
		return d.archiverErr
	}

	return failure.New(failure.Unsupported, "%s backend does not support %s on %s archives", d.desc.Kind, op, d.target.Format)
}

// ListCommand returns the command to list the archive.
func (d *Driver) ListCommand(password string) Command {
	return Command{Path: d.unarchiver, Args: d.desc.List(d.targetWith(password))}
}

// AddCommand returns the command to add the given files to the archive, creating it if it does not exist.
func (d *Driver) AddCommand(paths []string, opts AddOptions) (Command, error) {
	if err := d.check(Add); err != nil {
		return Command{}, err
	}
	if len(paths) == 0 {
		return Command{}, fmt.Errorf("no files to add")
	}

	dir, rel := d.relativise(paths, opts)
	t := d.targetWith(opts.Password)
	t.Dir = dir

	cmd := Command{Path: d.archiver, Args: d.desc.Add(t, rel, opts)}
	if d.desc.NeedsWorkDir {
		cmd.Dir = dir
	}

	return cmd, nil
}

// DeleteCommand returns the command to delete the given members from the archive.
func (d *Driver) DeleteCommand(paths []string) (Command, error) {
	if err := d.check(Delete); err != nil {
		return Command{}, err
	}
	if len(paths) == 0 {
		return Command{}, fmt.Errorf("no members to delete")
	}

	return Command{Path: d.archiver, Args: d.desc.Delete(d.target, paths)}, nil
}

// ExtractCommand returns the command to extract the given members, or every member if paths is empty, into dest.
//
// Returns an error of kind failure.NoDestinationDirectory if dest is empty.
func (d *Driver) ExtractCommand(paths []string, dest string, opts ExtractOptions) (Command, error) {
	if err := d.check(Extract); err != nil {
		return Command{}, err
	}
	if dest == "" {
		return Command{}, failure.New(failure.NoDestinationDirectory, "no destination directory to extract %s to", filepath.Base(d.target.Archive))
	}

	dest, err := filepath.Abs(dest)
	if err != nil {
		return Command{}, fmt.Errorf(`resolve absolute path of "%s" error: %w`, dest, err)
	}

	cmd := Command{Path: d.unarchiver, Args: d.desc.Extract(d.targetWith(opts.Password), paths, dest, opts)}
	if d.desc.ExtractInDest {
		cmd.Dir = dest
	}

	return cmd, nil
}

// TestCommand returns the command to test the integrity of the archive.
func (d *Driver) TestCommand(password string) (Command, error) {
	if err := d.check(Integrity); err != nil {
		return Command{}, err
	}

	return Command{Path: d.unarchiver, Args: d.desc.Test(d.targetWith(password))}, nil
}

// CreateCommand returns the command to create an empty archive.
//
// Returns false if the tool has no such command, in which case the archive comes into existence with the first Add.
func (d *Driver) CreateCommand() (Command, bool, error) {
	if err := d.check(Add); err != nil {
		return Command{}, false, err
	}
	if d.desc.Create == nil {
		return Command{}, false, nil
	}

	return Command{Path: d.archiver, Args: d.desc.Create(d.target)}, true, nil
}

// MemberNames returns the member names that AddCommand would store the given files as.
//
// Directories are returned without trailing slash. The names are used to find existing members of the same path
// before adding files to backends that have DuplicatesOnAppend.
func (d *Driver) MemberNames(paths []string, opts AddOptions) []string {
	_, rel := d.relativise(paths, opts)
	return lo.Map(rel, func(p string, _ int) string {
		if opts.JunkDirectoryNames {
			p = filepath.Base(p)
		}

		return strings.TrimSuffix(filepath.ToSlash(strings.TrimLeft(p, `/\`)), "/")
	})
}

// relativise returns the parent of the first path and every path relative to it.
func (d *Driver) relativise(paths []string, opts AddOptions) (dir string, rel []string) {
	return Relativise(paths, opts.StoreFullPath)
}

// Relativise returns the parent directory of the first path and every path relative to it, with duplicates removed.
//
// If storeFullPath is true then the paths are returned as absolute paths and dir is empty. A path that is not under
// the parent directory also stays absolute.
func Relativise(paths []string, storeFullPath bool) (dir string, rel []string) {
	if len(paths) == 0 {
		return "", nil
	}

	abs := lo.Map(paths, func(p string, _ int) string {
		if v, err := filepath.Abs(p); err == nil {
			return filepath.Clean(v)
		}

		return p
	})

	abs = lo.Uniq(abs)
	if storeFullPath {
		return "", abs
	}

	dir = filepath.Dir(abs[0])
	rel = lo.Map(abs, func(p string, _ int) string {
		if r, err := filepath.Rel(dir, p); err == nil && !strings.HasPrefix(r, "..") {
			return r
		}

		return p
	})

	return dir, rel
}
