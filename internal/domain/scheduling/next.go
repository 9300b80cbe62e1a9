package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Next returns the earliest Scheduled appointment strictly after now.
// Appointments with malformed date or time are skipped. ok is false when
// nothing qualifies.
func Next(list []Appointment, now time.Time, loc *time.Location) (next Appointment, ok bool) {
	var best time.Time
	for i := range list {
		if list[i].Status != StatusScheduled {
			continue
		}
		ts, valid := list[i].Timestamp(loc)
		if !valid || !ts.After(now) {
			continue
		}
		if !ok || ts.Before(best) {
			next, best, ok = list[i], ts, true
		}
	}
	return next, ok
}

const (
	placeholderTime = "--:--"
	placeholderName = "None"
)

// NextSummary is the "next appointment" card of the dashboard.
type NextSummary struct {
	Found         bool       `json:"found"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Date          string     `json:"date,omitempty"`
	Time          string     `json:"time"`
	ClientName    string     `json:"client_name"`
	Procedure     string     `json:"procedure"`
}

// Summarize renders the result of Next, using placeholders when nothing is
// upcoming or a referenced record is missing.
func Summarize(next Appointment, ok bool) NextSummary {
	if !ok {
		return NextSummary{Time: placeholderTime, ClientName: placeholderName, Procedure: placeholderName}
	}
	s := NextSummary{
		Found:      true,
		Date:       next.DisplayDate(),
		Time:       placeholderTime,
		ClientName: orPlaceholder(next.ClientName),
		Procedure:  orPlaceholder(next.ProcedureDescription),
	}
	id := next.ID
	s.AppointmentID = &id
	if t, valid := NormalizeTime(next.Time); valid {
		s.Time = t
	}
	return s
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholderName
	}
	return s
}
