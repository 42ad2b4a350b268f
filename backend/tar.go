package backend

import (
	"os"
	"path/filepath"

	"github.com/nguyengg/arkive/format"
	"github.com/nguyengg/arkive/listing"
)

// tarSpec parses GNU `tar -tvf`:
//
//	-rw-r--r-- user/group     1234 2023-01-02 03:04 file.txt
//	lrwxrwxrwx user/group        0 2023-01-02 03:04 link -> file.txt
var tarSpec = (&listing.Spec{
	Columns: []listing.Column{
		listing.Col(listing.Permissions, `[-dlcbphs][-rwxsStT]{9}`, 10),
		listing.Col(listing.OwnerGroup, `\S+/\S+`, 0),
		listing.Col(listing.Size, `\d+`, 0),
		listing.Col(listing.Date, `\d{4}-\d{2}-\d{2}`, 10),
		listing.Col(listing.Time, `\d{2}:\d{2}(?::\d{2})?`, 8),
		listing.Col(listing.Name, `.+`, 0),
	},
	DateOrder: listing.YMD,
}).MustValidate()

// tarCompression returns the flag that selects the compression program of GNU tar.
func tarCompression(f format.Format) []string {
	switch f {
	case format.TarGz:
		return []string{"-z"}
	case format.TarBz2:
		return []string{"-j"}
	case format.TarXz:
		return []string{"-J"}
	case format.TarZst:
		return []string{"--zstd"}
	default:
		return nil
	}
}

var tarDescriptor = &Descriptor{
	Kind:               Tar,
	Formats:            []format.Format{format.Tar, format.TarGz, format.TarBz2, format.TarXz, format.TarZst},
	WritableFormats:    []format.Format{format.Tar},
	Archivers:          []string{"gtar", "tar"},
	Unarchivers:        []string{"gtar", "tar"},
	Spec:               tarSpec,
	Operations:         Add | Delete | Extract | View | Integrity,
	DuplicatesOnAppend: true,
	List: func(t Target) []string {
		return append(tarCompression(t.Format), "-tvf", t.Archive)
	},
	Add: func(t Target, paths []string, opts AddOptions) []string {
		args := []string{"-r"}
		if opts.UpdateOnlyIfNewer {
			args[0] = "-u"
		}
		args = append(args, "-v")
		if !opts.StoreSymlinks {
			args = append(args, "-h")
		}
		if !opts.RecurseDirectories {
			args = append(args, "--no-recursion")
		}
		args = append(args, "-f", t.Archive)

		switch {
		case opts.JunkDirectoryNames:
			// -C applies to every name after it so each file gets its own.
			for _, p := range paths {
				args = append(args, "-C", dirOf(t.Dir, p), filepath.Base(p))
			}
		case t.Dir != "":
			args = append(args, "-C", t.Dir)
			args = append(args, paths...)
		default:
			args = append(args, paths...)
		}

		return args
	},
	Delete: func(t Target, paths []string) []string {
		return append([]string{"--delete", "-f", t.Archive}, trimDirSlash(paths)...)
	},
	Extract: func(t Target, paths []string, dest string, opts ExtractOptions) []string {
		args := append(tarCompression(t.Format), "-xvf", t.Archive, "-C", dest)
		if opts.Overwrite {
			args = append(args, "--overwrite")
		} else {
			args = append(args, "--skip-old-files")
		}
		if opts.JunkPaths {
			args = append(args, "--transform=s,.*/,,")
		}

		return append(args, trimDirSlash(paths)...)
	},
	Test: func(t Target) []string {
		return append(tarCompression(t.Format), "-tf", t.Archive)
	},
	Create: func(t Target) []string {
		return append(tarCompression(t.Format), "-cf", t.Archive, "--files-from", os.DevNull)
	},
}
