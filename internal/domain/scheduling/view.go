package scheduling

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

// StatusFilter selects appointments by status; FilterAll keeps every one.
type StatusFilter string

const FilterAll StatusFilter = ""

// ParseStatusFilter accepts "", "all" or a status name, case-insensitively.
func ParseStatusFilter(s string) (StatusFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return FilterAll, nil
	}
	st, ok := ParseStatus(s)
	if !ok {
		return FilterAll, fmt.Errorf("%w: unknown status %q", ErrInvalid, s)
	}
	return StatusFilter(st), nil
}

func (f StatusFilter) Includes(s Status) bool {
	return f == FilterAll || Status(f) == s
}

// Matches reports whether q (already lower-cased and trimmed) occurs in the
// client name, procedure description, phone or DD/MM/YYYY date. The phone
// is also matched with its punctuation stripped.
func (a *Appointment) Matches(q string) bool {
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(a.ClientName), q) ||
		strings.Contains(strings.ToLower(a.ProcedureDescription), q) ||
		strings.Contains(strings.ToLower(a.ClientPhone), q) ||
		strings.Contains(digits(a.ClientPhone), q) ||
		strings.Contains(a.DisplayDate(), q)
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// farthest is the proximity given to appointments whose date or time cannot
// be parsed, so they sort after every valid one.
const farthest = time.Duration(math.MaxInt64)

// Proximity is |timestamp - now|, or farthest when the timestamp is unknown.
func (a *Appointment) Proximity(now time.Time, loc *time.Location) time.Duration {
	ts, ok := a.Timestamp(loc)
	if !ok {
		return farthest
	}
	d := ts.Sub(now)
	if d < 0 {
		d = -d
		if d < 0 {
			return farthest
		}
	}
	return d
}

// View filters list by status and search query and orders the result.
// With FilterAll the order is status rank then proximity to now, otherwise
// proximity alone. Ties keep their input order. now is read once by the
// caller so every comparison uses the same instant.
func View(list []Appointment, filter StatusFilter, query string, now time.Time, loc *time.Location) []Appointment {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Appointment, 0, len(list))
	for i := range list {
		if filter.Includes(list[i].Status) && list[i].Matches(q) {
			out = append(out, list[i])
		}
	}
	Sort(out, filter, now, loc)
	return out
}

// Sort orders list in place using the View ordering for filter.
func Sort(list []Appointment, filter StatusFilter, now time.Time, loc *time.Location) {
	type keyed struct {
		a    Appointment
		rank int
		prox time.Duration
	}
	keys := make([]keyed, len(list))
	for i := range list {
		keys[i] = keyed{a: list[i], prox: list[i].Proximity(now, loc)}
		if filter == FilterAll {
			keys[i].rank = list[i].Status.Rank()
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].rank != keys[j].rank {
			return keys[i].rank < keys[j].rank
		}
		return keys[i].prox < keys[j].prox
	})
	for i := range keys {
		list[i] = keys[i].a
	}
}
