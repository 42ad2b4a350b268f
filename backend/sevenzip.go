package backend

import (
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/listing"
)

// sevenZipSpec parses `7z l`:
//
//	   Date      Time    Attr         Size   Compressed  Name
//	------------------- ----- ------------ ------------  ------------------------
//	2023-01-02 03:04:05 ....A         1234          567  file.txt
//	2023-01-02 03:04:05 D....            0            0  dir
//	------------------- ----- ------------ ------------  ------------------------
//
// The compressed size is blank for all but the first member of a solid block, and the timestamp is blank if the
// archive does not store one. The columns are padded to fixed widths, so the compressed size is read at its offset
// to keep it from taking the leading digits of the name.
var sevenZipSpec = (&listing.Spec{
	Columns: []listing.Column{
		listing.Opt(listing.Date, `\d{4}-\d{2}-\d{2}`, 10),
		listing.Opt(listing.Time, `\d{2}:\d{2}:\d{2}`, 8),
		listing.Col(listing.Permissions, `[D.][R.][H.][S.][A.]`, 5),
		listing.Col(listing.Size, `\d+`, 0),
		listing.Opt(listing.Packed, `\d+`, 12).At(39),
		listing.Col(listing.Name, `.+`, 0),
	},
	HeaderMarker: "-------------------",
	DateOrder:    listing.YMD,
	DirAttr:      'D',
}).MustValidate()

// sevenZipPassword returns the password switch. Without a password none is passed since "-p" alone means an empty
// password.
func sevenZipPassword(password string) []string {
	if password == "" {
		return nil
	}

	return []string{"-p" + password}
}

var sevenZipDescriptor = &Descriptor{
	Kind:            SevenZip,
	Formats:         []format.Format{format.SevenZip, format.Zip},
	Archivers:       []string{"7z", "7za", "7zz"},
	Unarchivers:     []string{"7z", "7za", "7zz"},
	Spec:            sevenZipSpec,
	Operations:      Add | Delete | Extract | View | Integrity,
	WarningCodes:    []int{1},
	PasswordMarkers: []string{"wrong password", "enter password", "can not open encrypted archive", "cannot open encrypted archive"},
	NeedsWorkDir:    true,
	List: func(t Target) []string {
		return append(append([]string{"l"}, sevenZipPassword(t.Password)...), t.Archive)
	},
	Add: func(t Target, paths []string, opts AddOptions) []string {
		args := []string{"a"}
		if opts.UpdateOnlyIfNewer {
			args[0] = "u"
		}
		if opts.RecurseDirectories {
			args = append(args, "-r")
		} else {
			args = append(args, "-r-")
		}
		if opts.StoreSymlinks {
			args = append(args, "-snl")
		}
		if t.Password != "" {
			args = append(args, "-p"+t.Password)
			if t.Format == format.SevenZip {
				args = append(args, "-mhe=on")
			}
		}

		return append(append(args, t.Archive), paths...)
	},
	Delete: func(t Target, paths []string) []string {
		return append([]string{"d", t.Archive}, trimDirSlash(paths)...)
	},
	Extract: func(t Target, paths []string, dest string, opts ExtractOptions) []string {
		args := []string{"x", "-aos", "-o" + dest}
		if opts.JunkPaths {
			args[0] = "e"
		}
		if opts.Overwrite {
			args[1] = "-aoa"
		}

		args = append(args, sevenZipPassword(t.Password)...)
		args = append(args, t.Archive)
		return append(args, trimDirSlash(paths)...)
	},
	Test: func(t Target) []string {
		return append(append([]string{"t"}, sevenZipPassword(t.Password)...), t.Archive)
	},
}
