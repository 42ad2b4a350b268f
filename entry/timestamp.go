package entry

import (
	"strconv"
	"strings"
	"time"
)

// yearCutoff splits two-digit years: below the cutoff is 20xx, at or above is 19xx.
const yearCutoff = 70

var months = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

// FixYear turns a two-digit year into a four-digit one using the 1970 cutoff.
//
// Years with more than two digits are returned as-is. The boolean is false if the token is not numeric.
func FixYear(token string) (int, bool) {
	token = strings.TrimSpace(token)

	n, err := strconv.Atoi(token)
	if err != nil || n < 0 {
		return 0, false
	}

	if len(token) > 2 {
		return n, true
	}

	if n < yearCutoff {
		return 2000 + n, true
	}

	return 1900 + n, true
}

// MonthNumber resolves either a numeric month ("1" through "12", zero-padded or not) or an English month name whose
// first three letters are given ("Feb", "feb", "February").
func MonthNumber(token string) (time.Month, bool) {
	token = strings.TrimSpace(token)

	if n, err := strconv.Atoi(token); err == nil {
		if n < 1 || n > 12 {
			return 0, false
		}

		return time.Month(n), true
	}

	if len(token) < 3 {
		return 0, false
	}

	m, ok := months[strings.ToLower(token[:3])]
	return m, ok
}

// InferYear returns the year of an entry whose listing omitted the year in favour of a time of day.
//
// Tools mirror `ls -l`: recent files show a time instead of a year. The year is the current year unless the entry's
// month is more than 6 months ahead of the current month, in which case it must be from last year.
func InferYear(month time.Month, now time.Time) int {
	if int(month)-int(now.Month()) > 6 {
		return now.Year() - 1
	}

	return now.Year()
}

// ParseClock parses "HH:MM" or "HH:MM:SS" with an optional trailing timezone marker such as zoo's "+00".
func ParseClock(token string) (hour, min, sec int, ok bool) {
	token = strings.TrimSpace(token)
	if i := strings.IndexAny(token, "+-"); i > 0 {
		token = token[:i]
	}

	parts := strings.Split(token, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}

	values := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}

		values[i] = n
	}

	if values[0] > 23 || values[1] > 59 || values[2] > 60 {
		return 0, 0, 0, false
	}

	return values[0], values[1], values[2], true
}
