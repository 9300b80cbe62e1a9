package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinic/clinic/internal/platform/db"
)

type appointmentRepoPG struct {
	q db.Querier
}

func NewAppointmentRepo(q db.Querier) AppointmentRepository {
	return &appointmentRepoPG{q: q}
}

const appointmentSelect = `
	SELECT a.id, a.client_id, a.procedure_id,
		COALESCE(to_char(a.date, 'YYYY-MM-DD'), ''), COALESCE(to_char(a.time, 'HH24:MI'), ''),
		a.status, a.note,
		COALESCE(c.name, ''), COALESCE(c.phone, ''), COALESCE(p.description, ''),
		a.created_at, a.updated_at
	FROM appointments a
	LEFT JOIN clients c ON c.id = a.client_id
	LEFT JOIN procedures p ON p.id = a.procedure_id`

// pgForeignKeyViolation is raised when client_id or procedure_id does not exist.
const pgForeignKeyViolation = "23503"

func translateWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%w: client or procedure does not exist", ErrInvalid)
	}
	return err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := db.Conn(ctx, r.q).QueryRow(ctx, `
		INSERT INTO appointments (id, client_id, procedure_id, date, time, status, note)
		VALUES ($1, $2, $3, $4::date, $5::time, $6, $7)
		RETURNING created_at, updated_at`,
		a.ID, a.ClientID, a.ProcedureID, a.Date, a.Time, a.Status, a.Note,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", translateWriteErr(err))
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(db.Conn(ctx, r.q).QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

// Update rewrites the editable fields. Status only changes through
// UpdateStatus.
func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := db.Conn(ctx, r.q).Exec(ctx, `
		UPDATE appointments
		SET client_id = $2, procedure_id = $3, date = $4::date, time = $5::time,
			note = $6, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.ClientID, a.ProcedureID, a.Date, a.Time, a.Note,
	)
	if err != nil {
		return fmt.Errorf("update appointment: %w", translateWriteErr(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := db.Conn(ctx, r.q).Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.q).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context) ([]Appointment, error) {
	return r.list(ctx, appointmentSelect+` ORDER BY a.date, a.time`)
}

func (r *appointmentRepoPG) ListByClient(ctx context.Context, clientID uuid.UUID) ([]Appointment, error) {
	return r.list(ctx, appointmentSelect+` WHERE a.client_id = $1 ORDER BY a.date, a.time`, clientID)
}

func (r *appointmentRepoPG) list(ctx context.Context, query string, args ...interface{}) ([]Appointment, error) {
	rows, err := db.Conn(ctx, r.q).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()
	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string
	err := row.Scan(
		&a.ID, &a.ClientID, &a.ProcedureID,
		&a.Date, &a.Time,
		&status, &a.Note,
		&a.ClientName, &a.ClientPhone, &a.ProcedureDescription,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}
