package backend

import (
	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/listing"
)

// rarSpec parses the technical listing of `unrar v -c-`, which spends three lines on every member:
//
//	 docs/readme.txt
//	                 1234      567  45% 02-01-23 03:04 -rw-r--r-- 1A2B3C4D m3b 2.9
//	                 Unix
//
// Encrypted members have their name prefixed with "*".
var rarSpec = (&listing.Spec{
	Columns: []listing.Column{
		listing.Opt(listing.Ignore, `\*`, 1),
		listing.Col(listing.Name, `.+`, 0),
		listing.Col(listing.Size, `\d+`, 0).OnLine(1),
		listing.Col(listing.Packed, `\d+`, 0).OnLine(1),
		listing.Col(listing.Ratio, `\d+%|-->|<--|<->`, 0).OnLine(1),
		listing.Col(listing.Date, `\d{2}-\d{2}-\d{2}`, 8).OnLine(1),
		listing.Col(listing.Time, `\d{2}:\d{2}`, 5).OnLine(1),
		listing.Col(listing.Permissions, `\S+`, 0).OnLine(1),
		listing.Col(listing.CRC, `[0-9A-Fa-f]{8}`, 8).OnLine(1),
		listing.Col(listing.Method, `m\d\S*`, 0).OnLine(1),
		listing.Col(listing.Version, `\d+\.\d+`, 0).OnLine(1),
	},
	HeaderMarker:  "-------------------------------------------------------------------------------",
	LinesPerEntry: 3,
	DateOrder:     listing.DMY,
	DirAttr:       'D',
}).MustValidate()

// rarPassword is the password switch. "-p-" stops rar from prompting for one.
func rarPassword(password string) string {
	if password == "" {
		return "-p-"
	}

	return "-p" + password
}

var rarDescriptor = &Descriptor{
	Kind:            Rar,
	Formats:         []format.Format{format.Rar},
	Archivers:       []string{"rar"},
	Unarchivers:     []string{"unrar", "rar"},
	Spec:            rarSpec,
	Operations:      Add | Delete | Extract | View | Integrity,
	WarningCodes:    []int{1},
	PasswordMarkers: []string{"password incorrect", "password is incorrect", "incorrect password", "enter password"},
	NeedsWorkDir:    true,
	List: func(t Target) []string {
		return []string{"v", "-c-", rarPassword(t.Password), t.Archive}
	},
	Add: func(t Target, paths []string, opts AddOptions) []string {
		args := []string{"a"}
		for _, f := range []struct {
			on   bool
			flag string
		}{
			{opts.UpdateOnlyIfNewer, "-u"},
			{opts.RecurseDirectories, "-r"},
			{opts.JunkDirectoryNames, "-ep"},
			{opts.StoreFullPath && !opts.JunkDirectoryNames, "-ep2"},
			{opts.StoreSymlinks, "-ol"},
			{opts.ForceMSDOSCase, "-cl"},
		} {
			if f.on {
				args = append(args, f.flag)
			}
		}
		if t.Password != "" {
			args = append(args, rarPassword(t.Password))
		}

		return append(append(args, "-y", t.Archive), paths...)
	},
	Delete: func(t Target, paths []string) []string {
		return append([]string{"d", t.Archive}, trimDirSlash(paths)...)
	},
	Extract: func(t Target, paths []string, dest string, opts ExtractOptions) []string {
		args := []string{"x", "-o-", rarPassword(t.Password)}
		if opts.JunkPaths {
			args[0] = "e"
		}
		if opts.Overwrite {
			args[1] = "-o+"
		}

		args = append(args, t.Archive)
		args = append(args, trimDirSlash(paths)...)
		return append(args, withSep(dest))
	},
	Test: func(t Target) []string {
		return []string{"t", rarPassword(t.Password), t.Archive}
	},
}
