package clients

import (
	"context"

	"github.com/google/uuid"
)

type ClientRepository interface {
	Create(ctx context.Context, c *Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*Client, error)
	Update(ctx context.Context, c *Client) error
	SetPhotoURL(ctx context.Context, id uuid.UUID, url string) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Search matches query against name, phone and CPF; an empty query
	// lists everyone. Results are ordered by name.
	Search(ctx context.Context, query string, limit, offset int) ([]*Client, int, error)
}
