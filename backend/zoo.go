package backend

import (
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/listing"
)

// zooSpec parses `zoo l`:
//
//	Length    CF  Size Now  Date      Time
//	--------  --- --------  --------- --------
//	    1234  54%      567   2 Jan 23 03:04:05+00   file.txt
//	--------  --- --------  --------- --------
var zooSpec = (&listing.Spec{
	Columns: []listing.Column{
		listing.Col(listing.Size, `\d+`, 0),
		listing.Col(listing.Ratio, `\d+%`, 0),
		listing.Col(listing.Packed, `\d+`, 0),
		listing.Col(listing.Day, `\d{1,2}`, 2),
		listing.Col(listing.Month, `[A-Za-z]{3}`, 3),
		listing.Col(listing.Year, `\d{2}`, 2),
		listing.Col(listing.Time, `\d{2}:\d{2}:\d{2}(?:[+-]\d+)?`, 0),
		listing.Col(listing.Name, `.+`, 0),
	},
	HeaderMarker: "--------",
}).MustValidate()

var zooDescriptor = &Descriptor{
	Kind:          Zoo,
	Formats:       []format.Format{format.Zoo},
	Archivers:     []string{"zoo"},
	Unarchivers:   []string{"zoo"},
	Spec:          zooSpec,
	Operations:    Add | Delete | Extract | View | Integrity,
	NeedsWorkDir:  true,
	ExtractInDest: true,
	List: func(t Target) []string {
		return []string{"l", t.Archive}
	},
	Add: func(t Target, paths []string, opts AddOptions) []string {
		cmd := "a"
		if opts.UpdateOnlyIfNewer {
			cmd += "u"
		}

		return append([]string{cmd, t.Archive}, paths...)
	},
	Delete: func(t Target, paths []string) []string {
		return append([]string{"DP", t.Archive}, paths...)
	},
	Extract: func(t Target, paths []string, _ string, opts ExtractOptions) []string {
		cmd := "xN"
		if opts.Overwrite {
			cmd = "xO"
		}
		if opts.JunkPaths {
			cmd += ":"
		}

		return append([]string{cmd, t.Archive}, paths...)
	},
	Test: func(t Target) []string {
		return []string{"-test", t.Archive}
	},
}
