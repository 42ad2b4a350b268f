// Package backend contains the drivers of the command-line archive tools.
//
// Every tool is described by a Descriptor: which executables to look for, how to build the argv of each operation,
// the listing.Spec of its output, and how to tell a password prompt apart from other failures. A Driver binds a
// Descriptor to one archive file after resolving the executables.
package backend

import (
	"fmt"
	"strings"
)

// Kind identifies a backend.
type Kind int

const (
	Tar Kind = iota + 1
	Zip
	Rar
	SevenZip
	Lha
	Zoo
	Ace
	Ar
)

func (k Kind) String() string {
	switch k {
	case Tar:
		return "tar"
	case Zip:
		return "zip"
	case Rar:
		return "rar"
	case SevenZip:
		return "7z"
	case Lha:
		return "lha"
	case Zoo:
		return "zoo"
	case Ace:
		return "ace"
	case Ar:
		return "ar"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, bool) {
	for _, d := range registry {
		if d.Kind.String() == strings.ToLower(name) {
			return d.Kind, true
		}
	}

	return 0, false
}

// Operations is a set of operations supported by a backend.
type Operations uint8

const (
	Add Operations = 1 << iota
	Delete
	Extract
	View
	Integrity
)

// Has returns true if every operation in op is in the set.
func (o Operations) Has(op Operations) bool {
	return o&op == op
}

func (o Operations) String() string {
	var names []string
	for _, v := range []struct {
		op   Operations
		name string
	}{{Add, "add"}, {Delete, "delete"}, {Extract, "extract"}, {View, "view"}, {Integrity, "integrity"}} {
		if o.Has(v.op) {
			names = append(names, v.name)
		}
	}

	return strings.Join(names, "|")
}

// AddOptions are the flags recognised when adding files.
//
// Not every backend honours every flag. Flags a tool has no equivalent for are ignored.
type AddOptions struct {
	// StoreFullPath stores the paths as given. Otherwise paths are stored relative to the parent directory of the
	// first path.
	StoreFullPath bool
	// UpdateOnlyIfNewer only replaces members that are older than the files on disk.
	UpdateOnlyIfNewer bool
	// RecurseDirectories adds the contents of directories.
	RecurseDirectories bool
	// JunkDirectoryNames stores only the base names of the files.
	JunkDirectoryNames bool
	// ForceMSDOSCase converts names to MS-DOS case.
	ForceMSDOSCase bool
	// ConvertLinefeeds converts LF to CRLF in text files.
	ConvertLinefeeds bool
	// StoreSymlinks stores symbolic links as links instead of the files they point to.
	StoreSymlinks bool
	// Password encrypts the added files, if the tool supports it.
	Password string
}

// ExtractOptions are the flags recognised when extracting files.
type ExtractOptions struct {
	// Overwrite replaces existing files without asking. Otherwise existing files are kept.
	Overwrite bool
	// JunkPaths extracts every member directly into the destination.
	JunkPaths bool
	// Password decrypts the members, if the tool supports it.
	Password string
}

// Command is one resolved invocation of a tool.
type Command struct {
	// Path is the resolved executable.
	Path string
	Args []string
	// Dir is the working directory of the process. Empty means the current directory.
	Dir string
	// Env is appended to the environment of the current process.
	Env []string
}

// String returns the command line for logging, with any password masked.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.Path)
	for i, arg := range c.Args {
		b.WriteByte(' ')
		if i > 0 && c.Args[i-1] == "-P" {
			b.WriteString("***")
			continue
		}
		if masked, ok := maskPassword(arg); ok {
			b.WriteString(masked)
			continue
		}

		if strings.ContainsAny(arg, " \t\"'") {
			b.WriteString(fmt.Sprintf("%q", arg))
			continue
		}

		b.WriteString(arg)
	}

	return b.String()
}

// maskPassword recognises the "-p<password>" switch of rar and 7z. The "-P <password>" form of zip is masked by
// Command.String.
func maskPassword(arg string) (string, bool) {
	if len(arg) > 2 && strings.HasPrefix(arg, "-p") && arg != "-p-" {
		return "-p***", true
	}

	return arg, false
}
