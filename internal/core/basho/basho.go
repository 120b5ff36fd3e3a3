// Package basho works with tournament identifiers in YYYYMM form.
package basho

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FirstID is the earliest tournament the API serves.
const FirstID = "195803"

// Months are the months in which a basho is held.
var Months = []time.Month{
	time.January,
	time.March,
	time.May,
	time.July,
	time.September,
	time.November,
}

// Divisions lists the divisions from top to bottom.
var Divisions = []string{
	"Makuuchi",
	"Juryo",
	"Makushita",
	"Sandanme",
	"Jonidan",
	"Jonokuchi",
}

const (
	minYear = 1900
	maxYear = 2100
)

// ID is a parsed basho identifier.
type ID struct {
	Year  int
	Month time.Month
}

// String returns the YYYYMM form.
func (id ID) String() string {
	return fmt.Sprintf("%04d%02d", id.Year, int(id.Month))
}

// Before reports whether id precedes other.
func (id ID) Before(other ID) bool {
	if id.Year != other.Year {
		return id.Year < other.Year
	}
	return id.Month < other.Month
}

// CurrentID returns the basho held in t's month, or the most recent one before
// it when t falls in an even month.
func CurrentID(t time.Time) string {
	year, month := t.Year(), t.Month()
	if month%2 == 0 {
		month--
	}
	return ID{Year: year, Month: month}.String()
}

// Parse splits a YYYYMM identifier. It checks shape only; use Valid to also
// require a tournament month.
func Parse(value string) (ID, error) {
	value = strings.TrimSpace(value)
	if len(value) != 6 {
		return ID{}, fmt.Errorf("invalid basho id %q: want YYYYMM", value)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return ID{}, fmt.Errorf("invalid basho id %q: want YYYYMM", value)
		}
	}

	year, _ := strconv.Atoi(value[:4])
	month, _ := strconv.Atoi(value[4:])
	return ID{Year: year, Month: time.Month(month)}, nil
}

// Valid reports whether value names a plausible tournament.
func Valid(value string) bool {
	id, err := Parse(value)
	if err != nil {
		return false
	}
	if id.Year < minYear || id.Year > maxYear {
		return false
	}
	return isBashoMonth(id.Month)
}

// Normalize trims value and returns it when valid. An empty value resolves to
// the current basho at now.
func Normalize(value string, now time.Time) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return CurrentID(now), nil
	}
	if !Valid(value) {
		return "", fmt.Errorf("invalid basho id %q: want YYYYMM in an odd month", value)
	}
	return value, nil
}

// FormatDate renders an identifier as "Jan 2026". Unparseable input yields
// an empty string.
func FormatDate(value string) string {
	id, err := Parse(value)
	if err != nil || id.Month < time.January || id.Month > time.December {
		return ""
	}
	return fmt.Sprintf("%s %d", id.Month.String()[:3], id.Year)
}

// IDList returns every basho from start to end inclusive, newest first.
func IDList(start string, end string) ([]string, error) {
	from, err := Parse(start)
	if err != nil {
		return nil, err
	}
	to, err := Parse(end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("basho range %s..%s is reversed", start, end)
	}

	var ids []string
	for year := to.Year; year >= from.Year; year-- {
		for i := len(Months) - 1; i >= 0; i-- {
			month := Months[i]
			if year == to.Year && month > to.Month {
				continue
			}
			if year == from.Year && month < from.Month {
				continue
			}
			ids = append(ids, ID{Year: year, Month: month}.String())
		}
	}
	return ids, nil
}

// ValidDivision reports whether name is a known division, ignoring case, and
// returns its canonical spelling.
func ValidDivision(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, division := range Divisions {
		if strings.EqualFold(division, name) {
			return division, true
		}
	}
	return "", false
}

func isBashoMonth(month time.Month) bool {
	for _, m := range Months {
		if m == month {
			return true
		}
	}
	return false
}
