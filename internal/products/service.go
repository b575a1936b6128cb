package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/threadloom/storefront-backend/pkg/db/models"
)

type lookupRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// Service exposes the read-only product lookup.
type Service interface {
	Lookup(ctx context.Context, id uuid.UUID) (*LookupDTO, error)
	LookupMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	LookupBatch(ctx context.Context, ids []uuid.UUID) ([]LookupDTO, error)
}

type service struct {
	repo lookupRepository
}

// NewService builds the lookup service.
func NewService(repo lookupRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Lookup(ctx context.Context, id uuid.UUID) (*LookupDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToLookupDTO(*product)
	return &dto, nil
}

func (s *service) LookupMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return s.repo.FindByIDs(ctx, dedupe(ids))
}

// LookupBatch returns the known products in request order. Unknown ids are
// skipped rather than failing the batch.
func (s *service) LookupBatch(ctx context.Context, ids []uuid.UUID) ([]LookupDTO, error) {
	ids = dedupe(ids)
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]LookupDTO, 0, len(found))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out = append(out, ToLookupDTO(p))
		}
	}
	return out, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
