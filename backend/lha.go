package backend

import (
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/listing"
)

// lhaSpec parses `lha v`:
//
//	PERMISSION  UID  GID    PACKED    SIZE  RATIO METHOD CRC     STAMP     NAME
//	---------- ----------- ------- ------- ------ ---------- ------------ -------------
//	-rw-r--r--  1000/1000      567    1234  45.9% -lh5- 1a2b Jan  2 03:04 file.txt
//	[generic]                  567    1234  45.9% -lh5- 1a2b Jan  2  2023 other.txt
//	---------- ----------- ------- ------- ------ ---------- ------------ -------------
//
// Archives made on other systems print the host in brackets in place of the permissions and no owner.
var lhaSpec = (&listing.Spec{
	Columns: []listing.Column{
		listing.Col(listing.Permissions, `\[\w+\]|[-dl][-rwxsStT]{9}`, 0),
		listing.Opt(listing.OwnerGroup, `\d+/\d+`, 0),
		listing.Col(listing.Packed, `\d+`, 0),
		listing.Col(listing.Size, `\d+`, 0),
		listing.Col(listing.Ratio, `\d+\.\d+%|\*+`, 0),
		listing.Col(listing.Method, `-l[hz][0-9a-z]-`, 5),
		listing.Col(listing.CRC, `[0-9a-fA-F]{4}`, 4),
		listing.Col(listing.Month, `[A-Za-z]{3}`, 3),
		listing.Col(listing.Day, `\d{1,2}`, 2),
		listing.Col(listing.TimeOrYear, `\d{1,2}:\d{2}|\d{4}`, 5),
		listing.Col(listing.Name, `.+`, 0),
	},
	HeaderMarker: "----------",
}).MustValidate()

var lhaDescriptor = &Descriptor{
	Kind:         Lha,
	Formats:      []format.Format{format.Lha},
	Archivers:    []string{"lha"},
	Unarchivers:  []string{"lha"},
	Spec:         lhaSpec,
	Operations:   Add | Delete | Extract | View | Integrity,
	NeedsWorkDir: true,
	List: func(t Target) []string {
		return []string{"v", t.Archive}
	},
	Add: func(t Target, paths []string, opts AddOptions) []string {
		cmd := "a"
		if opts.UpdateOnlyIfNewer {
			cmd = "u"
		}

		return append([]string{cmd, t.Archive}, paths...)
	},
	Delete: func(t Target, paths []string) []string {
		return append([]string{"d", t.Archive}, paths...)
	},
	Extract: func(t Target, paths []string, dest string, opts ExtractOptions) []string {
		key := "x"
		if opts.Overwrite {
			key += "f"
		}
		if opts.JunkPaths {
			key += "i"
		}

		return append([]string{key + "w=" + dest, t.Archive}, paths...)
	},
	Test: func(t Target) []string {
		return []string{"t", t.Archive}
	},
}
