package backend

import (
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/listing"
)

// zipSpec parses Info-ZIP `unzip -v`:
//
//	 Length   Method    Size  Cmpr    Date    Time   CRC-32   Name
//	--------  ------  ------- ---- ---------- ----- --------  ----
//	    1234  Defl:N      567  54% 01-02-2023 03:04 1a2b3c4d  file.txt
//	--------          -------  ---                            -------
var zipSpec = (&listing.Spec{
	Columns: []listing.Column{
		listing.Col(listing.Size, `\d+`, 0),
		listing.Col(listing.Method, `\S+`, 0),
		listing.Col(listing.Packed, `\d+`, 0),
		listing.Col(listing.Ratio, `-?\d+%`, 0),
		listing.Col(listing.Date, `\d{2}-\d{2}-\d{2}(?:\d{2})?|\d{4}-\d{2}-\d{2}`, 10),
		listing.Col(listing.Time, `\d{2}:\d{2}`, 5),
		listing.Col(listing.CRC, `[0-9a-fA-F]{8}`, 8),
		listing.Col(listing.Name, `.+`, 0),
	},
	HeaderMarker: "--------",
	DateOrder:    listing.MDY,
}).MustValidate()

var zipDescriptor = &Descriptor{
	Kind:        Zip,
	Formats:     []format.Format{format.Zip},
	Archivers:   []string{"zip"},
	Unarchivers: []string{"unzip"},
	Spec:        zipSpec,
	Operations:  Add | Delete | Extract | View | Integrity,
	// unzip exits 1 on warnings; zip exits 12 when there is nothing to update.
	WarningCodes:    []int{1, 12},
	PasswordMarkers: []string{"incorrect password", "unable to get password"},
	NeedsWorkDir:    true,
	List: func(t Target) []string {
		return []string{"-v", t.Archive}
	},
	Add: func(t Target, paths []string, opts AddOptions) []string {
		var args []string
		for _, f := range []struct {
			on   bool
			flag string
		}{
			{opts.RecurseDirectories, "-r"},
			{opts.UpdateOnlyIfNewer, "-u"},
			{opts.JunkDirectoryNames, "-j"},
			{opts.ForceMSDOSCase, "-k"},
			{opts.ConvertLinefeeds, "-l"},
			{opts.StoreSymlinks, "-y"},
		} {
			if f.on {
				args = append(args, f.flag)
			}
		}
		if t.Password != "" {
			args = append(args, "-P", t.Password)
		}

		return append(append(args, t.Archive), paths...)
	},
	Delete: func(t Target, paths []string) []string {
		return append([]string{"-d", t.Archive}, paths...)
	},
	Extract: func(t Target, paths []string, dest string, opts ExtractOptions) []string {
		args := []string{"-n"}
		if opts.Overwrite {
			args[0] = "-o"
		}
		if opts.JunkPaths {
			args = append(args, "-j")
		}
		if t.Password != "" {
			args = append(args, "-P", t.Password)
		}

		args = append(args, t.Archive)
		args = append(args, paths...)
		return append(args, "-d", dest)
	},
	Test: func(t Target) []string {
		if t.Password != "" {
			return []string{"-t", "-P", t.Password, t.Archive}
		}

		return []string{"-t", t.Archive}
	},
}
