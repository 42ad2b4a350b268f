package backend

import (
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/listing"
)

// aceSpec parses `unace v`:
//
//	Date    |Time |Packed     |Size     |Ratio|File
//	02.01.23|03:04|       567 |     1234|  45%| file.txt
var aceSpec = (&listing.Spec{
	Columns: []listing.Column{
		listing.Col(listing.Date, `\d{2}\.\d{2}\.\d{2}`, 8),
		listing.Col(listing.Time, `\d{2}:\d{2}`, 5),
		listing.Col(listing.Packed, `\d+`, 0),
		listing.Col(listing.Size, `\d+`, 0),
		listing.Col(listing.Ratio, `\d+%`, 0),
		listing.Col(listing.Name, `.+`, 0),
	},
	HeaderMarker: "Date    |Time |Packed",
	DateOrder:    listing.DMY,
	Separators:   " \t|",
}).MustValidate()

var aceDescriptor = &Descriptor{
	Kind:        Ace,
	Formats:     []format.Format{format.Ace},
	Unarchivers: []string{"unace"},
	Spec:        aceSpec,
	Operations:  Extract | View | Integrity,
	List: func(t Target) []string {
		return []string{"v", t.Archive}
	},
	Extract: func(t Target, paths []string, dest string, opts ExtractOptions) []string {
		args := []string{"x", "-y"}
		if opts.JunkPaths {
			args[0] = "e"
		}
		if opts.Overwrite {
			args = append(args, "-o")
		}
		if t.Password != "" {
			args = append(args, "-p"+t.Password)
		}

		return append(append(args, t.Archive, withSep(dest)), paths...)
	},
	Test: func(t Target) []string {
		return []string{"t", "-y", t.Archive}
	},
}
