package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinic/clinic/internal/platform/db"
)

type recordRepoPG struct {
	q db.Querier
}

func NewRecordRepo(q db.Querier) RecordRepository {
	return &recordRepoPG{q: q}
}

const recordCols = `id, client_id, kind, answers, skin_assessment, measurements, notes, created_at, updated_at`

func (r *recordRepoPG) Get(ctx context.Context, clientID uuid.UUID, kind Kind) (*Record, error) {
	return r.get(ctx, `SELECT `+recordCols+` FROM intake_records WHERE client_id = $1 AND kind = $2`, clientID, kind)
}

func (r *recordRepoPG) GetForUpdate(ctx context.Context, clientID uuid.UUID, kind Kind) (*Record, error) {
	return r.get(ctx, `SELECT `+recordCols+` FROM intake_records WHERE client_id = $1 AND kind = $2 FOR UPDATE`, clientID, kind)
}

func (r *recordRepoPG) get(ctx context.Context, query string, clientID uuid.UUID, kind Kind) (*Record, error) {
	rec, err := scanRecord(db.Conn(ctx, r.q).QueryRow(ctx, query, clientID, string(kind)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get intake record: %w", err)
	}
	return rec, nil
}

func (r *recordRepoPG) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*Record, error) {
	rows, err := db.Conn(ctx, r.q).Query(ctx, `SELECT `+recordCols+` FROM intake_records WHERE client_id = $1 ORDER BY kind`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list intake records: %w", err)
	}
	defer rows.Close()
	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intake record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *recordRepoPG) Upsert(ctx context.Context, rec *Record) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	skin, err := marshalOptional(rec.SkinAssessment, rec.SkinAssessment == nil)
	if err != nil {
		return fmt.Errorf("marshal skin assessment: %w", err)
	}
	measurements, err := marshalOptional(rec.Measurements, rec.Measurements == nil)
	if err != nil {
		return fmt.Errorf("marshal measurements: %w", err)
	}
	notes, err := json.Marshal(rec.Notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	err = db.Conn(ctx, r.q).QueryRow(ctx, `
		INSERT INTO intake_records (id, client_id, kind, answers, skin_assessment, measurements, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (client_id, kind) DO UPDATE SET
			answers = EXCLUDED.answers,
			skin_assessment = EXCLUDED.skin_assessment,
			measurements = EXCLUDED.measurements,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		rec.ID, rec.ClientID, string(rec.Kind), answers, skin, measurements, notes,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrClientNotFound
		}
		return fmt.Errorf("upsert intake record: %w", err)
	}
	return nil
}

func marshalOptional(v interface{}, isNil bool) ([]byte, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec                                Record
		kind                               string
		answers, skin, measurements, notes []byte
	)
	err := row.Scan(&rec.ID, &rec.ClientID, &kind, &answers, &skin, &measurements, &notes, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Kind = Kind(kind)
	if err := unmarshalOptional(answers, &rec.Answers); err != nil {
		return nil, fmt.Errorf("answers: %w", err)
	}
	if err := unmarshalOptional(skin, &rec.SkinAssessment); err != nil {
		return nil, fmt.Errorf("skin assessment: %w", err)
	}
	if err := unmarshalOptional(measurements, &rec.Measurements); err != nil {
		return nil, fmt.Errorf("measurements: %w", err)
	}
	if err := unmarshalOptional(notes, &rec.Notes); err != nil {
		return nil, fmt.Errorf("notes: %w", err)
	}
	if rec.Answers == nil {
		rec.Answers = map[string]Answer{}
	}
	if rec.Notes == nil {
		rec.Notes = []Note{}
	}
	return &rec, nil
}

func unmarshalOptional(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
