package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/events"
)

type Service struct {
	appointments AppointmentRepository
	events       events.Publisher
	loc          *time.Location
	now          func() time.Time
}

func NewService(appointments AppointmentRepository, pub events.Publisher, loc *time.Location) *Service {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{appointments: appointments, events: pub, loc: loc, now: time.Now}
}

func (s *Service) Location() *time.Location { return s.loc }

// validate checks required fields and normalises Date and Time.
func (s *Service) validate(a *Appointment) error {
	if a.ClientID == uuid.Nil {
		return fmt.Errorf("%w: client_id is required", ErrInvalid)
	}
	if a.ProcedureID == uuid.Nil {
		return fmt.Errorf("%w: procedure_id is required", ErrInvalid)
	}
	a.Date = strings.TrimSpace(a.Date)
	if a.Date == "" {
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}
	if _, err := time.Parse(DateLayout, a.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalid)
	}
	if strings.TrimSpace(a.Time) == "" {
		return fmt.Errorf("%w: time is required", ErrInvalid)
	}
	t, ok := NormalizeTime(a.Time)
	if !ok {
		return fmt.Errorf("%w: time must be HH:MM", ErrInvalid)
	}
	a.Time = t
	if a.Note != nil {
		if n := strings.TrimSpace(*a.Note); n == "" {
			a.Note = nil
		} else {
			a.Note = &n
		}
	}
	return nil
}

// Create stores a new appointment. New appointments are always Scheduled.
func (s *Service) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	if err := s.validate(a); err != nil {
		return nil, err
	}
	a.Status = StatusScheduled
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	events.Emit(ctx, s.events, events.AppointmentCreated, a.ID.String(), a)
	return s.reload(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// Update edits client, procedure, date, time and note. The stored status is
// kept whatever the caller sends.
func (s *Service) Update(ctx context.Context, a *Appointment) (*Appointment, error) {
	if err := s.validate(a); err != nil {
		return nil, err
	}
	existing, err := s.appointments.GetByID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Status = existing.Status
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	events.Emit(ctx, s.events, events.AppointmentUpdated, a.ID.String(), a)
	return s.reload(ctx, a)
}

// StatusChange is the payload of appointment.status_changed.
type StatusChange struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
}

// UpdateStatus moves an appointment to status. Setting the current status
// again succeeds without a write.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, status)
	}
	existing, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == status {
		return existing, nil
	}
	if !CanTransition(existing.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, existing.Status, status)
	}
	if err := s.appointments.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	events.Emit(ctx, s.events, events.AppointmentStatusChanged, id.String(),
		StatusChange{AppointmentID: id, From: existing.Status, To: status})
	existing.Status = status
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.appointments.Delete(ctx, id); err != nil {
		return err
	}
	events.Emit(ctx, s.events, events.AppointmentDeleted, id.String(), map[string]string{"id": id.String()})
	return nil
}

// List returns the filtered and ordered appointment view.
func (s *Service) List(ctx context.Context, filter StatusFilter, query string) ([]Appointment, error) {
	all, err := s.appointments.List(ctx)
	if err != nil {
		return nil, err
	}
	return View(all, filter, query, s.now(), s.loc), nil
}

func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID, filter StatusFilter, query string) ([]Appointment, error) {
	all, err := s.appointments.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return View(all, filter, query, s.now(), s.loc), nil
}

// Next summarises the next upcoming appointment.
func (s *Service) Next(ctx context.Context) (NextSummary, error) {
	all, err := s.appointments.List(ctx)
	if err != nil {
		return Summarize(Appointment{}, false), err
	}
	return Summarize(Next(all, s.now(), s.loc)), nil
}

// Dashboard is the home screen: today's date, the next appointment and
// per-status counts.
type Dashboard struct {
	Today      string         `json:"today"`
	Next       NextSummary    `json:"next"`
	TodayCount int            `json:"today_count"`
	Counts     map[Status]int `json:"counts"`
}

// Dashboard never fails. When appointments cannot be read it logs and
// reports an empty schedule.
func (s *Service) Dashboard(ctx context.Context) Dashboard {
	now := s.now().In(s.loc)
	d := Dashboard{
		Today:  LongDate(now),
		Counts: map[Status]int{},
	}
	for _, st := range Statuses {
		d.Counts[st] = 0
	}
	all, err := s.appointments.List(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("dashboard: list appointments")
		all = nil
	}
	today := now.Format(DateLayout)
	for i := range all {
		d.Counts[all[i].Status]++
		if strings.TrimSpace(all[i].Date) == today {
			d.TodayCount++
		}
	}
	d.Next = Summarize(Next(all, now, s.loc))
	return d
}

func (s *Service) reload(ctx context.Context, a *Appointment) (*Appointment, error) {
	full, err := s.appointments.GetByID(ctx, a.ID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("reload appointment")
		return a, nil
	}
	return full, nil
}
