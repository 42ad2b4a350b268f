package util

import "strings"

// maxExtLen is the longest single extension, dot included, that StemAndExt will consider part of the ext.
const maxExtLen = 7

// StemAndExt splits the base name of an archive into its stem and its possibly compound extension.
//
// `filepath.Ext("backup.tar.zst")` returns ".zst", but `StemAndExt("backup.tar.zst")` returns "backup" and ".tar.zst".
// Split volumes keep their volume suffix, so "photos.7z.001" becomes "photos" and ".7z.001". Extracting "backup.tar.zst"
// into its own directory therefore yields "backup" rather than "backup.tar".
//
// Each dot-separated piece can be at most 6 characters after the dot, so names such as "report.2024-final.zip" only
// lose ".zip". A leading dot is never an extension.
func StemAndExt(path string) (stem, ext string) {
	stem = path[strings.LastIndexAny(path, `/\`)+1:]

	for {
		i := strings.LastIndexByte(stem, '.')
		if i <= 0 || len(stem)-i > maxExtLen {
			return
		}

		stem, ext = stem[:i], stem[i:]+ext
	}
}
