package internal

import (
	"regexp"

	"github.com/nguyengg/arkive/entry"
)

var sep = regexp.MustCompile(`[\\/]`)

// FindRootDir returns the directory every entry of an archive is under.
//
// Given these three entries:
//
//	test/a.txt
//	test/path/b.txt
//	test/another/path/c.txt
//
// The root directory is `test`. The returned value is empty if the entries have no common root directory, in which
// case extracting them directly into the current directory would litter it.
func FindRootDir(entries []entry.Entry) (rootDir string) {
	fn := NewRootDirFinder()

	var ok bool
	for _, e := range entries {
		if rootDir, ok = fn(e.Path); !ok {
			break
		}
	}

	return
}

// NewRootDirFinder returns a function that can be passed the paths of entries one at a time to compute the common root.
//
// NewRootDirFinder is a functional variant of FindRootDir. It returns the current root dir and a boolean indicating
// whether there is a common root so far. As soon as the returned boolean value is false, the search can stop since
// there is no common root and subsequent calls will keep returning `"", false`.
func NewRootDirFinder() func(string) (rootDir string, hasRoot bool) {
	noRoot, root := false, ""

	return func(name string) (string, bool) {
		if noRoot {
			return "", false
		}

		paths := sep.Split(name, 2)
		switch {
		case len(paths) == 1:
			// this is a file at top level so there is no root for sure.
			noRoot = true
			return "", false
		case root == "":
			root = paths[0]
		case root != paths[0]:
			noRoot = true
			return "", false
		}

		return root, true
	}
}
