package backend

import (
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// trimDirSlash removes the trailing slash of directory members, which most tools do not accept as a member name.
func trimDirSlash(paths []string) []string {
	return lo.Map(paths, func(p string, _ int) string {
		if p == "/" {
			return p
		}

		return strings.TrimSuffix(p, "/")
	})
}

// dirOf returns the directory containing p, which may be relative to dir.
func dirOf(dir, p string) string {
	if !filepath.IsAbs(p) && dir != "" {
		p = filepath.Join(dir, p)
	}

	return filepath.Dir(p)
}

// withSep returns dir with a trailing path separator, which some tools require of their destination argument.
func withSep(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}

	return dir + string(filepath.Separator)
}
