// Date arithmetic for the collection window.  All dates are UTC calendar days; the collector
// always works on the window [day, day+1).

package common

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// The format of a date argument is one of:
//  YYYY-MM-DD
//  Nd (days ago)
//  Nw (weeks ago)

// MT: Constant after initialization; immutable.
var dateRe = regexp.MustCompile(`^(\d\d\d\d)-(\d\d)-(\d\d)$`)
var daysRe = regexp.MustCompile(`^(\d+)d$`)
var weeksRe = regexp.MustCompile(`^(\d+)w$`)

func ParseRelativeDate(s string) (time.Time, error) {
	probe := dateRe.FindSubmatch([]byte(s))
	if probe != nil {
		yyyy, _ := strconv.ParseUint(string(probe[1]), 10, 32)
		mm, _ := strconv.ParseUint(string(probe[2]), 10, 32)
		dd, _ := strconv.ParseUint(string(probe[3]), 10, 32)
		return time.Date(int(yyyy), time.Month(mm), int(dd), 0, 0, 0, 0, time.UTC), nil
	}
	probe = daysRe.FindSubmatch([]byte(s))
	if probe != nil {
		days, _ := strconv.ParseUint(string(probe[1]), 10, 32)
		return ThisDay(time.Now().UTC().AddDate(0, 0, -int(days))), nil
	}
	probe = weeksRe.FindSubmatch([]byte(s))
	if probe != nil {
		weeks, _ := strconv.ParseUint(string(probe[1]), 10, 32)
		return ThisDay(time.Now().UTC().AddDate(0, 0, -int(weeks)*7)), nil
	}
	return time.Now(), errors.New("Bad date specification")
}

// The time returned is UTC; the input ought to be UTC as well.
func ThisDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func NextDay(t time.Time) time.Time {
	return ThisDay(t.AddDate(0, 0, 1))
}

func PreviousDay(t time.Time) time.Time {
	return ThisDay(t.AddDate(0, 0, -1))
}

// DateString formats t the way sacct and the database want their date arguments.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}

// DateRange resolves a single-day argument against a from/to pair, every part optional and in
// ParseRelativeDate syntax.  A bare date selects one day, default 1d; a range takes its missing
// endpoint from the other when only one is given.  The range is inclusive at both ends.
func DateRange(dateOpt, fromOpt, toOpt string) (from, to time.Time, err error) {
	if dateOpt != "" && (fromOpt != "" || toOpt != "") {
		err = errors.New("A single date cannot be combined with a date range")
		return
	}
	if fromOpt == "" && toOpt == "" {
		if dateOpt == "" {
			dateOpt = "1d"
		}
		from, err = ParseRelativeDate(dateOpt)
		to = from
		return
	}
	if fromOpt == "" {
		fromOpt = toOpt
	}
	if toOpt == "" {
		toOpt = fromOpt
	}
	from, err = ParseRelativeDate(fromOpt)
	if err != nil {
		return
	}
	to, err = ParseRelativeDate(toOpt)
	if err != nil {
		return
	}
	if to.Before(from) {
		err = errors.New("Empty date range")
	}
	return
}
