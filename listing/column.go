// Package listing parses the free-form tabular output of archive tools into entries.
//
// A tool's output layout is described declaratively by a Spec: one Column per field, each with a validating pattern,
// an optional maximum width, and whether the field may be absent. The Parser applies a Spec to one physical line at
// a time, and a Reassembler turns arbitrary chunks of process output into those lines.
package listing

import (
	"errors"
	"fmt"
	"regexp"
)

// Field identifies which part of an entry a column carries.
type Field int

const (
	// Ignore columns are matched and validated but their value is discarded.
	Ignore Field = iota
	Name
	Size
	Packed
	Ratio
	Permissions
	Owner
	Group
	// OwnerGroup is a combined "owner/group" column such as tar's "user/group" or ar's "1000/1000".
	OwnerGroup
	CRC
	Method
	Version
	Year
	Month
	Day
	// Time is a time of day, "HH:MM" or "HH:MM:SS".
	Time
	// TimeOrYear holds either a time of day or a year, as in `ls -l`.
	TimeOrYear
	// Date is a composite date token such as "2023-01-02" or "02-01-23", split according to Spec.DateOrder.
	Date
)

func (f Field) String() string {
	switch f {
	case Ignore:
		return "ignore"
	case Name:
		return "name"
	case Size:
		return "size"
	case Packed:
		return "packed"
	case Ratio:
		return "ratio"
	case Permissions:
		return "permissions"
	case Owner:
		return "owner"
	case Group:
		return "group"
	case OwnerGroup:
		return "owner/group"
	case CRC:
		return "crc"
	case Method:
		return "method"
	case Version:
		return "version"
	case Year:
		return "year"
	case Month:
		return "month"
	case Day:
		return "day"
	case Time:
		return "time"
	case TimeOrYear:
		return "time-or-year"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// DateOrder is the order of the three components of a Date column.
type DateOrder int

const (
	YMD DateOrder = iota
	MDY
	DMY
)

// Column describes how to slice and validate one field of a physical line.
type Column struct {
	Field Field
	// Pattern validates the field. It is matched at the start of the remaining line, after separators are skipped.
	Pattern *regexp.Regexp
	// MaxWidth limits how many bytes the pattern may consume. Zero means the rest of the line.
	MaxWidth int
	// Optional columns may be missing from a line without invalidating it.
	Optional bool
	// Line is the zero-based index of the physical line this column applies to, for multi-line entries.
	Line int
	// Fixed columns occupy the MaxWidth bytes at byte offset Start instead of following the previous column. A fixed
	// column that is blank is missing, so an optional fixed column never consumes the text of the next column.
	Fixed bool
	Start int
}

// Col creates a required Column on the first physical line.
//
// The pattern is anchored at the start so the caller does not need to add "^".
func Col(field Field, pattern string, maxWidth int) Column {
	return Column{Field: field, Pattern: regexp.MustCompile(`^(?:` + pattern + `)`), MaxWidth: maxWidth}
}

// Opt creates an optional Column on the first physical line.
func Opt(field Field, pattern string, maxWidth int) Column {
	c := Col(field, pattern, maxWidth)
	c.Optional = true
	return c
}

// OnLine returns a copy of the column that applies to the given physical line of a multi-line entry.
func (c Column) OnLine(line int) Column {
	c.Line = line
	return c
}

// At returns a copy of the column that is fixed at the given byte offset, spanning MaxWidth bytes.
func (c Column) At(start int) Column {
	c.Fixed = true
	c.Start = start
	return c
}

// Spec is the Column Specification of one backend.
type Spec struct {
	Columns []Column
	// HeaderMarker fences the data rows. Its first occurrence starts the data region, its second ends it. An empty
	// marker means the whole output is data.
	HeaderMarker string
	// LinesPerEntry is how many consecutive physical lines make up one entry. Zero is treated as one.
	LinesPerEntry int
	// DateOrder tells how to split Date columns.
	DateOrder DateOrder
	// Separators are the characters skipped between columns. Empty means space and tab.
	Separators string
	// DirAttr, if not zero, is the character in the permissions column that marks a directory, checked anywhere in
	// the string (for DOS-style attributes such as "D....").
	DirAttr byte
}

func (s *Spec) linesPerEntry() int {
	return max(1, s.LinesPerEntry)
}

func (s *Spec) separators() string {
	if s.Separators == "" {
		return " \t"
	}

	return s.Separators
}

// Validate checks that the spec references each field at most once and that its date fields can produce a complete
// timestamp.
func (s *Spec) Validate() error {
	if len(s.Columns) == 0 {
		return errors.New("spec has no columns")
	}

	seen := make(map[Field]bool)
	for i, c := range s.Columns {
		if c.Pattern == nil {
			return fmt.Errorf("column %d (%s) has no pattern", i, c.Field)
		}
		if c.Line < 0 || c.Line >= s.linesPerEntry() {
			return fmt.Errorf("column %d (%s) refers to line %d of a %d-line entry", i, c.Field, c.Line, s.linesPerEntry())
		}
		if c.Fixed && (c.Start < 0 || c.MaxWidth <= 0) {
			return fmt.Errorf("fixed column %d (%s) needs a non-negative start and a positive width", i, c.Field)
		}
		if c.Field == Ignore {
			continue
		}
		if seen[c.Field] {
			return fmt.Errorf("column %d duplicates field %s", i, c.Field)
		}
		seen[c.Field] = true
	}

	if !seen[Name] {
		return errors.New("spec has no name column")
	}
	if seen[OwnerGroup] && (seen[Owner] || seen[Group]) {
		return errors.New("spec has both owner/group and separate owner or group columns")
	}
	if seen[Date] && (seen[Year] || seen[Month] || seen[Day]) {
		return errors.New("spec has both a date column and separate year, month, or day columns")
	}
	if seen[TimeOrYear] && (seen[Year] || seen[Time]) {
		return errors.New("spec has a time-or-year column alongside a year or time column")
	}
	if (seen[Month] || seen[Day]) && !(seen[Month] && seen[Day]) {
		return errors.New("spec must have both month and day columns or neither")
	}

	return nil
}

// MustValidate panics if Validate fails. It is intended for package-level spec declarations.
func (s *Spec) MustValidate() *Spec {
	if err := s.Validate(); err != nil {
		panic(err)
	}

	return s
}
