package procedures

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	procedures ProcedureRepository
}

func NewService(procedures ProcedureRepository) *Service {
	return &Service{procedures: procedures}
}

func validate(p *Procedure) error {
	p.Description = strings.TrimSpace(p.Description)
	if p.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalid)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Procedure) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.procedures.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Procedure, error) {
	return s.procedures.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, p *Procedure) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.procedures.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.procedures.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Procedure, int, error) {
	return s.procedures.List(ctx, limit, offset)
}
