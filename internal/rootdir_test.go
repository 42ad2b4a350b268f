package internal

import (
	"testing"

	"github.com/nguyengg/arkive/entry"
	"github.com/stretchr/testify/assert"
)

func TestFindRootDir(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantRoot string
	}{
		{
			name: "simple root",
			args: []string{
				"test/",
				"test/a.txt",
				"test/path/b.txt",
				"test/another/path/c.txt",
			},
			wantRoot: "test",
		},
		{
			name: "no root",
			args: []string{
				"a.txt",
				"path/b.txt",
				"another/path/c.txt",
			},
			wantRoot: "",
		},
		{
			name: "no root at the end",
			args: []string{
				"test/a.txt",
				"test/path/b.txt",
				"c.txt",
			},
			wantRoot: "",
		},
		{
			name: "different roots",
			args: []string{
				"test/a.txt",
				"other/b.txt",
			},
			wantRoot: "",
		},
		{
			name: "windows paths",
			args: []string{
				"test\\a.txt",
				"test\\path\\b.txt",
				"test\\another\\path\\c.txt",
			},
			wantRoot: "test",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := make([]entry.Entry, 0, len(tt.args))
			for _, name := range tt.args {
				entries = append(entries, entry.Entry{Path: name})
			}

			assert.Equalf(t, tt.wantRoot, FindRootDir(entries), "FindRootDir(%v)", tt.args)
		})
	}
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, `[1/3] "test.zip"`, Prefix(0, 3, "dir/test.zip"))
	assert.Equal(t, `[3/3] "a-very-long-archive-name-that-..."`, Prefix(2, 3, "a-very-long-archive-name-that-goes-on.tar.gz"))
}
