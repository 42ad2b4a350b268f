package backend

import (
	"slices"
	"strings"

	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/listing"
)

// Target is what every argv template needs to know about the invocation.
type Target struct {
	// Archive is the absolute path to the archive.
	Archive string
	Format  format.Format
	// Password is empty if none was given.
	Password string
	// Dir is the directory the paths given to Add are relative to. Empty if they are absolute.
	Dir string
}

// Descriptor is the data-driven definition of one command-line backend.
type Descriptor struct {
	Kind Kind
	// Formats are the formats this backend can handle.
	Formats []format.Format
	// WritableFormats restricts Add and Delete to a subset of Formats. Nil means all of them.
	WritableFormats []format.Format

	// Archivers are the candidate executables for Add, Delete, and Create, in preference order.
	Archivers []string
	// Unarchivers are the candidate executables for listing, Extract, and Integrity, in preference order.
	Unarchivers []string

	Spec       *listing.Spec
	Operations Operations

	// WarningCodes are non-zero exit codes that still mean success.
	WarningCodes []int
	// PasswordMarkers are lowercase substrings of stderr that mean a password is missing or wrong.
	PasswordMarkers []string

	// DuplicatesOnAppend is true if the tool appends a second member rather than replacing an existing one of the
	// same path. Such members must be deleted before they are added again.
	DuplicatesOnAppend bool
	// NeedsWorkDir is true if the tool records added paths relative to its working directory.
	NeedsWorkDir bool
	// ExtractInDest is true if the tool always extracts into its working directory.
	ExtractInDest bool

	List    func(t Target) []string
	Add     func(t Target, paths []string, opts AddOptions) []string
	Delete  func(t Target, paths []string) []string
	Extract func(t Target, paths []string, dest string, opts ExtractOptions) []string
	Test    func(t Target) []string
	// Create is nil if the archive is created by the first Add instead.
	Create func(t Target) []string
}

// Handles returns true if the backend can handle the given format.
func (d *Descriptor) Handles(f format.Format) bool {
	return slices.Contains(d.Formats, f)
}

// OperationsFor returns the operations supported for the given format.
func (d *Descriptor) OperationsFor(f format.Format) Operations {
	ops := d.Operations
	if d.WritableFormats != nil && !slices.Contains(d.WritableFormats, f) {
		ops &^= Add | Delete
	}

	return ops
}

// DetectPasswordRequired returns true if the accumulated stderr of a process has any of the password markers.
func (d *Descriptor) DetectPasswordRequired(stderr string) bool {
	if len(d.PasswordMarkers) == 0 {
		return false
	}

	lower := strings.ToLower(stderr)
	for _, m := range d.PasswordMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}

	return false
}

// IsWarning returns true if the exit code is one of the warning codes.
func (d *Descriptor) IsWarning(code int) bool {
	return slices.Contains(d.WarningCodes, code)
}

// registry is the registration table of command-line backends, in the order they are preferred.
var registry = []*Descriptor{
	tarDescriptor,
	zipDescriptor,
	rarDescriptor,
	sevenZipDescriptor,
	lhaDescriptor,
	zooDescriptor,
	aceDescriptor,
	arDescriptor,
}

// Register adds a descriptor to the registration table, replacing any existing one of the same Kind.
//
// Register is not safe for concurrent use and should be called during initialisation.
func Register(d *Descriptor) {
	for i, v := range registry {
		if v.Kind == d.Kind {
			registry[i] = d
			return
		}
	}

	registry = append(registry, d)
}

// Lookup returns the descriptor of the given kind.
func Lookup(kind Kind) (*Descriptor, bool) {
	for _, d := range registry {
		if d.Kind == kind {
			return d, true
		}
	}

	return nil, false
}

// For returns the descriptors that can handle the given format, in preference order.
func For(f format.Format) []*Descriptor {
	var ds []*Descriptor
	for _, d := range registry {
		if d.Handles(f) {
			ds = append(ds, d)
		}
	}

	return ds
}

// Descriptors returns every registered descriptor.
func Descriptors() []*Descriptor {
	return slices.Clone(registry)
}
