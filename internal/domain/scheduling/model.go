package scheduling

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalid           = errors.New("invalid appointment")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Status is the lifecycle state of an appointment. Completed and Canceled
// are terminal.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCanceled  Status = "Canceled"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusScheduled, StatusCompleted, StatusCanceled}

var statusRank = map[Status]int{
	StatusScheduled: 1,
	StatusCompleted: 2,
	StatusCanceled:  3,
}

// unknownRank places unrecognised statuses after every known one.
const unknownRank = 999

func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return unknownRank
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

const (
	DateLayout        = "2006-01-02"
	DisplayDateLayout = "02/01/2006"
)

// Appointment maps to the appointments table. Date and Time are kept as the
// stored text (YYYY-MM-DD, HH:MM) and interpreted in the clinic time zone.
// ClientName, ClientPhone and ProcedureDescription are filled by list
// queries from the joined rows and are empty when the reference is gone.
type Appointment struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	ClientID             uuid.UUID `db:"client_id" json:"client_id"`
	ProcedureID          uuid.UUID `db:"procedure_id" json:"procedure_id"`
	Date                 string    `db:"date" json:"date"`
	Time                 string    `db:"time" json:"time"`
	Status               Status    `db:"status" json:"status"`
	Note                 *string   `db:"note" json:"note,omitempty"`
	ClientName           string    `db:"-" json:"client_name,omitempty"`
	ClientPhone          string    `db:"-" json:"client_phone,omitempty"`
	ProcedureDescription string    `db:"-" json:"procedure_description,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayDate renders Date as DD/MM/YYYY, or returns it unchanged when it
// does not parse.
func (a *Appointment) DisplayDate() string {
	d, err := time.Parse(DateLayout, strings.TrimSpace(a.Date))
	if err != nil {
		return a.Date
	}
	return d.Format(DisplayDateLayout)
}

// Timestamp combines Date and the hour and minute of Time in loc. Seconds
// are ignored. ok is false when either part is malformed.
func (a *Appointment) Timestamp(loc *time.Location) (t time.Time, ok bool) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(a.Date), loc)
	if err != nil {
		return time.Time{}, false
	}
	h, m, ok := parseClock(a.Time)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, loc), true
}

// parseClock reads "HH:MM" or "HH:MM:SS".
func parseClock(s string) (hour, minute int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// NormalizeTime returns the HH:MM form of a valid clock string.
func NormalizeTime(s string) (string, bool) {
	h, m, ok := parseClock(s)
	if !ok {
		return "", false
	}
	return time.Date(0, 1, 1, h, m, 0, 0, time.UTC).Format("15:04"), true
}
