// Package entry contains the normalised record describing one file or directory inside an archive.
package entry

import (
	"strings"
	"time"
)

// Entry is one archived file or directory.
//
// Entry is a value type. Listings hand out copies so that callers may keep them after the archive is closed.
type Entry struct {
	// Path is the canonical path inside the archive. Directories keep their trailing "/".
	Path string
	// Name is the display name, which is Path without the trailing "/".
	Name string
	// LinkTarget is the target of a symlinked entry, split off the " -> " suffix of the raw filename.
	LinkTarget string

	Size       uint64
	PackedSize uint64
	// Ratio is the compression ratio in percent, either reported by the tool or derived from Size and PackedSize.
	Ratio float64

	// Modified is the normalised timestamp. The zero value means the timestamp is unknown, see HasTimestamp.
	Modified time.Time

	// Permissions is the raw permission string using the alphabet of the tool that listed the entry.
	Permissions string
	Owner       string
	Group       string
	CRC         string
	Method      string
	Version     string

	// Dir is true if the entry is a directory.
	Dir bool
}

// HasTimestamp returns false if the listing did not yield a fully resolved timestamp.
func (e Entry) HasTimestamp() bool {
	return !e.Modified.IsZero()
}

// IsSymlink returns true if the entry has a link target.
func (e Entry) IsSymlink() bool {
	return e.LinkTarget != ""
}

// SplitLink splits the raw filename field of a listing into the entry name and the symlink target.
//
// Everything before the first " -> " is the name, everything after is the target. If the field has no arrow then
// target is empty.
func SplitLink(field string) (name, target string) {
	if i := strings.Index(field, " -> "); i != -1 {
		return field[:i], field[i+len(" -> "):]
	}

	return field, ""
}

// New creates an Entry from the raw filename field.
//
// The path keeps any trailing "/" so it can be used for lookups while the name drops it for display. If dir is true
// and the raw path does not end with "/" then one is appended to the canonical path.
func New(field string, dir bool) Entry {
	name, target := SplitLink(field)
	return NewLink(name, target, dir)
}

// NewLink is a variant of New for sources that report the link target separately, so the name is never split.
func NewLink(name, target string, dir bool) Entry {
	e := Entry{Path: name, LinkTarget: target, Dir: dir || strings.HasSuffix(name, "/")}
	if e.Dir && !strings.HasSuffix(e.Path, "/") {
		e.Path += "/"
	}

	e.Name = strings.TrimSuffix(e.Path, "/")
	return e
}

// DeriveRatio fills in Ratio from Size and PackedSize if the tool did not report one.
func (e *Entry) DeriveRatio() {
	if e.Ratio != 0 || e.Size == 0 || e.PackedSize == 0 || e.PackedSize > e.Size {
		return
	}

	e.Ratio = float64(e.Size-e.PackedSize) / float64(e.Size) * 100.0
}
