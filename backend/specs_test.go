package backend

import (
	"strings"
	"testing"
	"time"

	"github.com/nguyengg/arkive/entry"
	"github.com/nguyengg/arkive/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseOutput feeds output through a Reassembler in the given chunks then through a Parser, like a list job does.
func parseOutput(t *testing.T, spec *listing.Spec, chunks ...string) []entry.Entry {
	t.Helper()

	var (
		r       listing.Reassembler
		p       = listing.NewParser(spec, fixedNow)
		entries []entry.Entry
	)

	handle := func(line string) {
		if res := p.Parse(line); res.Kind == listing.Parsed {
			entries = append(entries, res.Entry)
		}
	}

	for _, chunk := range chunks {
		for _, line := range r.Feed([]byte(chunk)) {
			handle(line)
		}
	}
	if line, ok := r.Flush(); ok {
		handle(line)
	}
	p.Finish()

	return entries
}

func fixedNow(opts *listing.ParserOptions) {
	opts.Now = func() time.Time {
		return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	}
	opts.Location = time.UTC
}

func date(year int, month time.Month, day, hour, min, sec int) time.Time {
	return time.Date(year, month, day, hour, min, sec, 0, time.UTC)
}

func TestTarSpec(t *testing.T) {
	entries := parseOutput(t, tarSpec, `-rw-r--r-- user/group 1234 2023-01-02 03:04 file.txt
drwxr-xr-x user/group    0 2023-01-02 03:04 docs/
lrwxrwxrwx user/group    0 2023-01-02 03:04:05 docs/link -> ../file.txt
tar: Record size = 8 blocks`)
	require.Len(t, entries, 3)

	e := entries[0]
	assert.Equal(t, "file.txt", e.Path)
	assert.Equal(t, uint64(1234), e.Size)
	assert.Equal(t, "-rw-r--r--", e.Permissions)
	assert.Equal(t, "user", e.Owner)
	assert.Equal(t, "group", e.Group)
	assert.Equal(t, date(2023, time.January, 2, 3, 4, 0), e.Modified)

	assert.True(t, entries[1].Dir)
	assert.Equal(t, "docs", entries[1].Name)

	assert.Equal(t, "docs/link", entries[2].Path)
	assert.Equal(t, "../file.txt", entries[2].LinkTarget)
	assert.Equal(t, date(2023, time.January, 2, 3, 4, 5), entries[2].Modified)
}

const rarOutput = `
UNRAR 3.93 freeware      Copyright (c) 1993-2010 Alexander Roshal

Archive test.rar

Pathname/Comment
                  Size   Packed Ratio  Date   Time     Attr      CRC   Meth Ver
-------------------------------------------------------------------------------
 docs/readme.txt
                  1234      567  45% 02-01-23 03:04 -rw-r--r-- 1A2B3C4D m3b 2.9
                  Unix
*secret.txt
                    10       32 320% 15-06-99 23:59 .....A.... DEADBEEF m3b 2.9
                  Win
 docs
                     0        0   0% 02-01-23 03:04 ...D...... 00000000 m0 2.0
                  Win
-------------------------------------------------------------------------------
    3             1244      599  48%
`

func TestRarSpec(t *testing.T) {
	// split in the middle of the first stats line, then in the middle of the second name line.
	first := strings.Index(rarOutput, "567")
	second := strings.Index(rarOutput, "secret") + 3
	chunks := []string{rarOutput[:first], rarOutput[first:second], rarOutput[second:]}

	for name, chunks := range map[string][]string{"one chunk": {rarOutput}, "three chunks": chunks} {
		t.Run(name, func(t *testing.T) {
			entries := parseOutput(t, rarSpec, chunks...)
			require.Len(t, entries, 3)

			e := entries[0]
			assert.Equal(t, "docs/readme.txt", e.Path)
			assert.Equal(t, uint64(1234), e.Size)
			assert.Equal(t, uint64(567), e.PackedSize)
			assert.Equal(t, 45.0, e.Ratio)
			assert.Equal(t, "1A2B3C4D", e.CRC)
			assert.Equal(t, "m3b", e.Method)
			assert.Equal(t, "2.9", e.Version)
			assert.Equal(t, date(2023, time.January, 2, 3, 4, 0), e.Modified)

			e = entries[1]
			assert.Equal(t, "secret.txt", e.Path)
			assert.Equal(t, uint64(10), e.Size)
			assert.Equal(t, date(1999, time.June, 15, 23, 59, 0), e.Modified)
			assert.False(t, e.Dir)

			e = entries[2]
			assert.True(t, e.Dir)
			assert.Equal(t, "docs/", e.Path)
		})
	}
}

func TestZipSpec(t *testing.T) {
	entries := parseOutput(t, zipSpec, `Archive:  test.zip
 Length   Method    Size  Cmpr    Date    Time   CRC-32   Name
--------  ------  ------- ---- ---------- ----- --------  ----
    1234  Defl:N      567  54% 01-02-2023 03:04 1a2b3c4d  file.txt
       0  Stored        0   0% 2023-01-02 03:04 00000000  dir/
      12  Stored       12   0% 12-31-99 23:59 0badf00d  old name.txt
--------          -------  ---                            -------
    1246              579  54%                            3 files
`)
	require.Len(t, entries, 3)

	assert.Equal(t, entry.Entry{
		Path:       "file.txt",
		Name:       "file.txt",
		Size:       1234,
		PackedSize: 567,
		Ratio:      54,
		Modified:   date(2023, time.January, 2, 3, 4, 0),
		CRC:        "1a2b3c4d",
		Method:     "Defl:N",
	}, entries[0])

	assert.True(t, entries[1].Dir)
	assert.Equal(t, date(2023, time.January, 2, 3, 4, 0), entries[1].Modified)

	assert.Equal(t, "old name.txt", entries[2].Path)
	assert.Equal(t, date(1999, time.December, 31, 23, 59, 0), entries[2].Modified)
}

func TestSevenZipSpec(t *testing.T) {
	entries := parseOutput(t, sevenZipSpec, `
7-Zip [64] 16.02 : Copyright (c) 1999-2016 Igor Pavlov : 2016-05-21

Scanning the drive for archives:
1 file, 1024 bytes (1 KiB)

Listing archive: test.7z

--
Path = test.7z
Type = 7z

   Date      Time    Attr         Size   Compressed  Name
------------------- ----- ------------ ------------  ------------------------
2023-01-02 03:04:05 D....            0            0  docs
2023-01-02 03:04:05 ....A         1234          567  docs/readme.txt
2023-01-02 03:04:06 ....A          100               docs/other.txt
                    ....A           10               no-time.txt
------------------- ----- ------------ ------------  ------------------------
2023-01-02 03:04:06               1344          567  3 files, 1 folders
`)
	require.Len(t, entries, 4)

	assert.True(t, entries[0].Dir)
	assert.Equal(t, "docs/", entries[0].Path)

	assert.Equal(t, "docs/readme.txt", entries[1].Path)
	assert.InDelta(t, 54.05, entries[1].Ratio, 0.01, "derived from size and packed size")

	assert.Equal(t, "docs/other.txt", entries[2].Path)
	assert.Equal(t, uint64(0), entries[2].PackedSize)
	assert.Equal(t, date(2023, time.January, 2, 3, 4, 6), entries[2].Modified)

	assert.Equal(t, "no-time.txt", entries[3].Path)
	assert.False(t, entries[3].HasTimestamp())
}

func TestSevenZipSpec_SolidBlock(t *testing.T) {
	// members after the first of a solid block have a blank compressed size.
	entries := parseOutput(t, sevenZipSpec, `
   Date      Time    Attr         Size   Compressed  Name
------------------- ----- ------------ ------------  ------------------------
2024-05-06 07:08:09 ....A         1234          567  a.txt
2024-05-06 07:08:09 ....A           10               2024 report.txt
2024-05-06 07:08:09 ....A           20               2025
2024-05-06 07:08:09 ....A           30           40  7 wonders.txt
------------------- ----- ------------ ------------  ------------------------
`)
	require.Len(t, entries, 4)

	assert.Equal(t, "a.txt", entries[0].Path)
	assert.Equal(t, uint64(1234), entries[0].Size)
	assert.Equal(t, uint64(567), entries[0].PackedSize)

	assert.Equal(t, "2024 report.txt", entries[1].Path)
	assert.Equal(t, uint64(10), entries[1].Size)
	assert.Equal(t, uint64(0), entries[1].PackedSize)

	assert.Equal(t, "2025", entries[2].Path)
	assert.Equal(t, uint64(20), entries[2].Size)
	assert.Equal(t, uint64(0), entries[2].PackedSize)

	assert.Equal(t, "7 wonders.txt", entries[3].Path)
	assert.Equal(t, uint64(40), entries[3].PackedSize)
}

func TestLhaSpec(t *testing.T) {
	entries := parseOutput(t, lhaSpec, `PERMISSION  UID  GID    PACKED    SIZE  RATIO METHOD CRC     STAMP     NAME
---------- ----------- ------- ------- ------ ---------- ------------ -------------
-rw-r--r--  1000/1000      567    1234  45.9% -lh5- 1a2b Jan  2 03:04 file.txt
drwxr-xr-x  1000/1000        0       0 ****** -lhd- 0000 Feb 14  2020 docs/
[generic]                   12      12 100.0% -lh0- beef Dec 31  1999 readme
---------- ----------- ------- ------- ------ ---------- ------------ -------------
 Total         3 files     579    1246  46.5%            Mar 15 12:00
`)
	require.Len(t, entries, 3)

	assert.Equal(t, "file.txt", entries[0].Path)
	assert.Equal(t, "1000", entries[0].Owner)
	assert.Equal(t, "-lh5-", entries[0].Method)
	assert.Equal(t, date(2024, time.January, 2, 3, 4, 0), entries[0].Modified)

	assert.True(t, entries[1].Dir)
	assert.Equal(t, date(2020, time.February, 14, 0, 0, 0), entries[1].Modified)

	assert.Equal(t, "[generic]", entries[2].Permissions)
	assert.Empty(t, entries[2].Owner)
	assert.Equal(t, date(1999, time.December, 31, 0, 0, 0), entries[2].Modified)
}

func TestZooSpec(t *testing.T) {
	entries := parseOutput(t, zooSpec, `Archive test.zoo:
Length    CF  Size Now  Date      Time
--------  --- --------  --------- --------
    1234  54%      567   2 Jan 23 03:04:05+00   file.txt
      10   0%       10  31 Dec 99 23:59:59+01   docs/readme
--------  --- --------  --------- --------
    1244  53%      577     2 files
`)
	require.Len(t, entries, 2)

	assert.Equal(t, "file.txt", entries[0].Path)
	assert.Equal(t, uint64(567), entries[0].PackedSize)
	assert.Equal(t, date(2023, time.January, 2, 3, 4, 5), entries[0].Modified)
	assert.Equal(t, date(1999, time.December, 31, 23, 59, 59), entries[1].Modified)
}

func TestAceSpec(t *testing.T) {
	entries := parseOutput(t, aceSpec, `UNACE v2.5     Copyright by ACE Compression Software

Processing archive: test.ace

Date    |Time |Packed     |Size     |Ratio|File
02.01.23|03:04|       567 |     1234|  45%| file.txt
31.12.99|23:59|        10 |       10| 100%| docs/readme.txt

listed: 2 files, totaling 1244 bytes (compressed 577)
`)
	require.Len(t, entries, 2)

	assert.Equal(t, "file.txt", entries[0].Path)
	assert.Equal(t, uint64(1234), entries[0].Size)
	assert.Equal(t, uint64(567), entries[0].PackedSize)
	assert.Equal(t, date(2023, time.January, 2, 3, 4, 0), entries[0].Modified)
	assert.Equal(t, "docs/readme.txt", entries[1].Path)
}

func TestArSpec(t *testing.T) {
	entries := parseOutput(t, arSpec, "rw-r--r-- 1000/1000   1234 Jan  2 03:04 2023 file.o\n"+
		"rw-r--r-- 0/0            8 Dec 31 23:59 1999 debian-binary\n")
	require.Len(t, entries, 2)

	assert.Equal(t, "file.o", entries[0].Path)
	assert.Equal(t, date(2023, time.January, 2, 3, 4, 0), entries[0].Modified)
	assert.Equal(t, "0", entries[1].Owner)
	assert.Equal(t, date(1999, time.December, 31, 23, 59, 0), entries[1].Modified)
}
