package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinic/clinic/internal/platform/db"
)

type clientRepoPG struct {
	q db.Querier
}

func NewClientRepo(q db.Querier) ClientRepository {
	return &clientRepoPG{q: q}
}

const clientCols = `id, name, phone, address, cpf,
	COALESCE(to_char(birth_date, 'YYYY-MM-DD'), ''), occupation, photo_url,
	COALESCE(to_char(client_since, 'YYYY-MM-DD'), ''), created_at, updated_at`

func (r *clientRepoPG) Create(ctx context.Context, c *Client) error {
	c.ID = uuid.New()
	err := db.Conn(ctx, r.q).QueryRow(ctx, `
		INSERT INTO clients (id, name, phone, address, cpf, birth_date, occupation, photo_url, client_since)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::date, $7, $8, NULLIF($9, '')::date)
		RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Phone, c.Address, c.CPF, c.BirthDate, c.Occupation, c.PhotoURL, c.ClientSince,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (r *clientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	c, err := scanClient(db.Conn(ctx, r.q).QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

// Update leaves photo_url and client_since alone; photos change only
// through SetPhotoURL.
func (r *clientRepoPG) Update(ctx context.Context, c *Client) error {
	tag, err := db.Conn(ctx, r.q).Exec(ctx, `
		UPDATE clients SET name = $2, phone = $3, address = $4, cpf = $5,
			birth_date = NULLIF($6, '')::date, occupation = $7, updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Phone, c.Address, c.CPF, c.BirthDate, c.Occupation,
	)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clientRepoPG) SetPhotoURL(ctx context.Context, id uuid.UUID, url string) error {
	tag, err := db.Conn(ctx, r.q).Exec(ctx,
		`UPDATE clients SET photo_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("set client photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.q).Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const clientSearchWhere = `
	WHERE $1 = ''
		OR name ILIKE '%' || $1 || '%'
		OR phone ILIKE '%' || $1 || '%'
		OR cpf ILIKE '%' || $1 || '%'
		OR ($2 <> '' AND regexp_replace(phone, '\D', '', 'g') LIKE '%' || $2 || '%')
		OR ($2 <> '' AND regexp_replace(cpf, '\D', '', 'g') LIKE '%' || $2 || '%')`

// likeEscaper escapes LIKE wildcards; backslash is the default ESCAPE in Postgres.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *clientRepoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Client, int, error) {
	conn := db.Conn(ctx, r.q)
	digits := onlyDigits(query)
	query = escapeLike(query)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM clients`+clientSearchWhere, query, digits).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}
	rows, err := conn.Query(ctx, `SELECT `+clientCols+` FROM clients`+clientSearchWhere+`
		ORDER BY name LIMIT $3 OFFSET $4`, query, digits, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search clients: %w", err)
	}
	defer rows.Close()
	var out []*Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Address, &c.CPF,
		&c.BirthDate, &c.Occupation, &c.PhotoURL,
		&c.ClientSince, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
