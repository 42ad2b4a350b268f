package backend

import (
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/listing"
)

// arSpec parses GNU `ar tv`, which has no header:
//
//	rw-r--r-- 1000/1000   1234 Jan  2 03:04 2023 file.o
var arSpec = (&listing.Spec{
	Columns: []listing.Column{
		listing.Col(listing.Permissions, `[-r][-w][-xsS][-r][-w][-xsS][-r][-w][-xtT]`, 9),
		listing.Col(listing.OwnerGroup, `\d+/\d+`, 0),
		listing.Col(listing.Size, `\d+`, 0),
		listing.Col(listing.Month, `[A-Za-z]{3}`, 3),
		listing.Col(listing.Day, `\d{1,2}`, 2),
		listing.Col(listing.Time, `\d{2}:\d{2}`, 5),
		listing.Col(listing.Year, `\d{4}`, 4),
		listing.Col(listing.Name, `.+`, 0),
	},
}).MustValidate()

var arDescriptor = &Descriptor{
	Kind:          Ar,
	Formats:       []format.Format{format.Ar},
	Archivers:     []string{"ar"},
	Unarchivers:   []string{"ar"},
	Spec:          arSpec,
	Operations:    Add | Delete | Extract | View,
	NeedsWorkDir:  true,
	ExtractInDest: true,
	List: func(t Target) []string {
		return []string{"tv", t.Archive}
	},
	Add: func(t Target, paths []string, opts AddOptions) []string {
		cmd := "r"
		if opts.UpdateOnlyIfNewer {
			cmd = "ru"
		}

		return append([]string{cmd, t.Archive}, paths...)
	},
	Delete: func(t Target, paths []string) []string {
		return append([]string{"d", t.Archive}, paths...)
	},
	Extract: func(t Target, paths []string, _ string, _ ExtractOptions) []string {
		return append([]string{"xo", t.Archive}, paths...)
	},
	Create: func(t Target) []string {
		return []string{"rc", t.Archive}
	},
}
