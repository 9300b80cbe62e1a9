package procedures

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("procedure not found")
	ErrInvalid  = errors.New("invalid procedure")
	// ErrInUse is returned when deleting a procedure that appointments still reference.
	ErrInUse = errors.New("procedure is referenced by appointments")
)

// Procedure is an entry of the service catalog.
type Procedure struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
