package clients

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("client not found")
	ErrInvalid  = errors.New("invalid client")
	// ErrPhotoTooLarge and ErrNotImage reject uploads before anything is stored.
	ErrPhotoTooLarge = errors.New("photo exceeds 5MB")
	ErrNotImage      = errors.New("photo must be an image")
)

const dateLayout = "2006-01-02"

// Client maps to the clients table. BirthDate and ClientSince are
// YYYY-MM-DD strings.
type Client struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Phone       string    `db:"phone" json:"phone"`
	Address     string    `db:"address" json:"address"`
	CPF         string    `db:"cpf" json:"cpf"`
	BirthDate   string    `db:"birth_date" json:"birth_date"`
	Occupation  string    `db:"occupation" json:"occupation"`
	PhotoURL    *string   `db:"photo_url" json:"photo_url,omitempty"`
	ClientSince string    `db:"client_since" json:"client_since"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Age in whole years at now. ok is false when BirthDate does not parse.
func (c *Client) Age(now time.Time) (age int, ok bool) {
	b, err := time.Parse(dateLayout, c.BirthDate)
	if err != nil {
		return 0, false
	}
	age = now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	return age, true
}
