package listing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nguyengg/arkive/entry"
)

// State is the position of a Parser relative to the header fence.
type State int

const (
	// BeforeData means the header marker has not been seen yet.
	BeforeData State = iota
	// InData means lines are parsed as entries.
	InData
	// Finished means the closing marker has been seen and further lines are ignored.
	Finished
)

func (s State) String() string {
	switch s {
	case BeforeData:
		return "before data"
	case InData:
		return "in data"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ResultKind tells what Parser.Parse did with a line.
type ResultKind int

const (
	// NotInData means the line was before the data region, or was the opening marker.
	NotInData ResultKind = iota
	// Pending means the line was buffered as part of a multi-line entry.
	Pending
	// Parsed means Result.Entry holds a well-formed entry.
	Parsed
	// Skipped means the line was in the data region but was blank or malformed. Malformed lines carry a Reason.
	Skipped
	// Done means the closing marker was seen, now or earlier.
	Done
)

// Result is the outcome of parsing one physical line.
type Result struct {
	Kind  ResultKind
	Entry entry.Entry
	// Reason explains why a line was skipped. It is empty for blank lines.
	Reason string
}

// ParserOptions customises NewParser.
type ParserOptions struct {
	// Now returns the current time, used to infer the year of entries whose listing only has a time of day.
	Now func() time.Time
	// Location is the timezone of the timestamps printed by the tool. Defaults to time.Local.
	Location *time.Location
}

// Parser applies a Spec to physical lines of tool output.
//
// A Parser keeps the header state and any partially collected multi-line entry, so one Parser must be used per
// listing. It is not safe for concurrent use.
type Parser struct {
	spec  *Spec
	now   func() time.Time
	loc   *time.Location
	state State
	group []string

	sawHeader        bool
	parsed, rejected int
}

// NewParser creates a Parser for the given spec.
func NewParser(spec *Spec, optFns ...func(*ParserOptions)) *Parser {
	opts := &ParserOptions{Now: time.Now, Location: time.Local}
	for _, fn := range optFns {
		fn(opts)
	}

	p := &Parser{spec: spec, now: opts.Now, loc: opts.Location}
	if spec.HeaderMarker == "" {
		p.state = InData
	}

	return p
}

// State returns the current header state.
func (p *Parser) State() State {
	return p.state
}

// SawHeader returns true if the opening header marker was seen. Always false for specs without a marker.
func (p *Parser) SawHeader() bool {
	return p.sawHeader
}

// Parsed returns the number of entries produced so far.
func (p *Parser) Parsed() int {
	return p.parsed
}

// Rejected returns the number of malformed lines (or incomplete multi-line groups) skipped so far.
func (p *Parser) Rejected() int {
	return p.rejected
}

// Parse consumes one physical line, without its terminating newline.
func (p *Parser) Parse(line string) Result {
	line = strings.TrimRight(line, "\r")

	if p.state == Finished {
		return Result{Kind: Done}
	}

	if marker := p.spec.HeaderMarker; marker != "" && strings.Contains(line, marker) {
		if p.state == BeforeData {
			p.state = InData
			p.sawHeader = true
			return Result{Kind: NotInData}
		}

		p.Finish()
		p.state = Finished
		return Result{Kind: Done}
	}

	if p.state == BeforeData {
		return Result{Kind: NotInData}
	}

	if len(p.group) == 0 && strings.TrimSpace(line) == "" {
		return Result{Kind: Skipped}
	}

	p.group = append(p.group, line)
	if len(p.group) < p.spec.linesPerEntry() {
		return Result{Kind: Pending}
	}

	group := p.group
	p.group = nil

	e, err := p.build(group)
	if err != nil {
		p.rejected++
		return Result{Kind: Skipped, Reason: err.Error()}
	}

	p.parsed++
	return Result{Kind: Parsed, Entry: e}
}

// Finish discards an incomplete multi-line group at end of stream, counting it as rejected.
//
// Returns true if a group was discarded.
func (p *Parser) Finish() bool {
	if len(p.group) == 0 {
		return false
	}

	p.group = nil
	p.rejected++
	return true
}

// extract applies the columns to each line of the group and returns the captured text per field.
func (p *Parser) extract(group []string) (map[Field]string, error) {
	var (
		seps   = p.spec.separators()
		fields = make(map[Field]string, len(p.spec.Columns))
	)

	for i, line := range group {
		pos := 0

		for _, c := range p.spec.Columns {
			if c.Line != i {
				continue
			}

			if c.Fixed {
				v, end, err := fixedField(line, pos, c, seps)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", i+1, err)
				}
				if v != "" && c.Field != Ignore {
					fields[c.Field] = v
				}
				pos = end
				continue
			}

			for pos < len(line) && strings.IndexByte(seps, line[pos]) != -1 {
				pos++
			}

			rest := line[pos:]
			seg := rest
			if c.MaxWidth > 0 && len(seg) > c.MaxWidth {
				seg = seg[:c.MaxWidth]
			}

			loc := c.Pattern.FindStringIndex(seg)
			if loc == nil || loc[1] == 0 || !atBoundary(rest, seg, loc[1], seps) {
				if c.Optional {
					continue
				}

				return nil, fmt.Errorf("line %d: %s column does not match %q", i+1, c.Field, seg)
			}

			if c.Field != Ignore {
				fields[c.Field] = seg[:loc[1]]
			}
			pos += loc[1]
		}
	}

	return fields, nil
}

// fixedField returns the trimmed text of a fixed column and the position after it.
//
// A blank field is empty and only valid if the column is optional. A non-blank field must match the pattern entirely.
func fixedField(line string, pos int, c Column, seps string) (string, int, error) {
	if pos > c.Start {
		return "", pos, fmt.Errorf("%s column at offset %d overlaps the previous column", c.Field, c.Start)
	}

	end := min(c.Start+c.MaxWidth, len(line))
	if c.Start >= end {
		if c.Optional {
			return "", max(pos, len(line)), nil
		}

		return "", pos, fmt.Errorf("%s column at offset %d is missing", c.Field, c.Start)
	}

	v := strings.Trim(line[c.Start:end], seps)
	if v == "" {
		if c.Optional {
			return "", end, nil
		}

		return "", pos, fmt.Errorf("%s column at offset %d is blank", c.Field, c.Start)
	}

	if loc := c.Pattern.FindStringIndex(v); loc == nil || loc[1] != len(v) {
		return "", pos, fmt.Errorf("%s column does not match %q", c.Field, v)
	}

	return v, end, nil
}

// atBoundary returns true if a match of length n ends the field: at end of line, before a separator, or at the edge
// of a width-limited segment.
func atBoundary(rest, seg string, n int, seps string) bool {
	switch {
	case n == len(rest):
		return true
	case strings.IndexByte(seps, rest[n]) != -1:
		return true
	default:
		return n == len(seg) && len(seg) < len(rest)
	}
}

func (p *Parser) build(group []string) (e entry.Entry, err error) {
	fields, err := p.extract(group)
	if err != nil {
		return e, err
	}

	name := strings.TrimRight(fields[Name], " \t")
	if name == "" {
		return e, fmt.Errorf("empty name")
	}

	perms := fields[Permissions]
	dir := strings.HasPrefix(perms, "d") || (p.spec.DirAttr != 0 && strings.IndexByte(perms, p.spec.DirAttr) != -1)

	e = entry.New(name, dir)
	e.Permissions = perms
	e.CRC = fields[CRC]
	e.Method = fields[Method]
	e.Version = fields[Version]
	e.Owner, e.Group = fields[Owner], fields[Group]

	if og, ok := fields[OwnerGroup]; ok {
		e.Owner, e.Group, _ = strings.Cut(og, "/")
	}

	if e.Size, err = parseSize(fields, Size); err != nil {
		return e, err
	}
	if e.PackedSize, err = parseSize(fields, Packed); err != nil {
		return e, err
	}

	if r, ok := fields[Ratio]; ok {
		// tools print placeholders such as "******" for empty files so a non-numeric ratio is not an error.
		if f, err := strconv.ParseFloat(strings.TrimSuffix(r, "%"), 64); err == nil {
			e.Ratio = f
		}
	}
	e.DeriveRatio()

	e.Modified = p.timestamp(fields)
	return e, nil
}

func parseSize(fields map[Field]string, f Field) (uint64, error) {
	v, ok := fields[f]
	if !ok {
		return 0, nil
	}

	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", f, v, err)
	}

	return n, nil
}

var dateSep = regexp.MustCompile(`[-/.]`)

// timestamp assembles year, month, day, and time of day into one value.
//
// Returns the zero time if any component is missing or invalid so a timestamp is never partially resolved.
func (p *Parser) timestamp(fields map[Field]string) time.Time {
	var (
		yTok, mTok, dTok = fields[Year], fields[Month], fields[Day]
		clock            = fields[Time]
	)

	if d, ok := fields[Date]; ok {
		parts := dateSep.Split(d, 3)
		if len(parts) != 3 {
			return time.Time{}
		}

		switch {
		case len(parts[0]) == 4 || p.spec.DateOrder == YMD:
			// a four-digit leading component is always the year, some tool builds print ISO dates regardless.
			yTok, mTok, dTok = parts[0], parts[1], parts[2]
		case p.spec.DateOrder == MDY:
			mTok, dTok, yTok = parts[0], parts[1], parts[2]
		case p.spec.DateOrder == DMY:
			dTok, mTok, yTok = parts[0], parts[1], parts[2]
		}
	}

	if toy, ok := fields[TimeOrYear]; ok {
		if strings.Contains(toy, ":") {
			clock = toy
		} else {
			yTok = toy
		}
	}

	if mTok == "" || dTok == "" {
		return time.Time{}
	}

	month, ok := entry.MonthNumber(mTok)
	if !ok {
		return time.Time{}
	}

	day, err := strconv.Atoi(dTok)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}
	}

	var year int
	switch {
	case yTok != "":
		if year, ok = entry.FixYear(yTok); !ok {
			return time.Time{}
		}
	case clock != "":
		year = entry.InferYear(month, p.now())
	default:
		return time.Time{}
	}

	var hour, min, sec int
	if clock != "" {
		if hour, min, sec, ok = entry.ParseClock(clock); !ok {
			return time.Time{}
		}
	}

	t := time.Date(year, month, day, hour, min, sec, 0, p.loc)
	if t.Day() != day {
		// e.g. February 30th normalised into March.
		return time.Time{}
	}

	return t
}
