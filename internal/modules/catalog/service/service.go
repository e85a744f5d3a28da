package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"legalconnect.io/portal/internal/entity"
	"legalconnect.io/portal/internal/modules/catalog/dto"
	"legalconnect.io/portal/internal/modules/catalog/repository"
	"legalconnect.io/portal/internal/modules/registration/form"
	"legalconnect.io/portal/pkg/apperror"
)

const snapshotTTL = 5 * time.Minute

type CatalogService interface {
	GetAll(ctx context.Context) (*dto.CatalogsResponse, error)
	GetByKind(ctx context.Context, kind string) ([]dto.CatalogEntryResponse, error)
	// Snapshot returns the catalogs as a form.Catalog, cached for a few
	// minutes.
	Snapshot(ctx context.Context) (form.Catalog, error)
}

type catalogService struct {
	repo repository.CatalogRepository
	now  func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
	loadedAt time.Time
}

func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{repo: repo, now: time.Now}
}

func (s *catalogService) GetAll(ctx context.Context) (*dto.CatalogsResponse, error) {
	entries, err := s.repo.FindAll(ctx, "")
	if err != nil {
		return nil, err
	}

	resp := &dto.CatalogsResponse{
		Languages:   []dto.CatalogEntryResponse{},
		Specialties: []dto.CatalogEntryResponse{},
		Courts:      []dto.CatalogEntryResponse{},
	}
	for _, e := range entries {
		item := toResponse(e)
		switch form.SelectionGroup(e.Kind) {
		case form.GroupLanguages:
			resp.Languages = append(resp.Languages, item)
		case form.GroupSpecialties:
			resp.Specialties = append(resp.Specialties, item)
		case form.GroupCourts:
			resp.Courts = append(resp.Courts, item)
		}
	}
	return resp, nil
}

func (s *catalogService) GetByKind(ctx context.Context, kind string) ([]dto.CatalogEntryResponse, error) {
	if _, err := form.ParseSelectionGroup(kind); err != nil {
		return nil, fmt.Errorf("%w: %v", apperror.ErrNotFound, err)
	}

	entries, err := s.repo.FindAll(ctx, kind)
	if err != nil {
		return nil, err
	}

	out := make([]dto.CatalogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toResponse(e))
	}
	return out, nil
}

func (s *catalogService) Snapshot(ctx context.Context) (form.Catalog, error) {
	s.mu.RLock()
	if s.snapshot != nil && s.now().Sub(s.loadedAt) < snapshotTTL {
		snap := s.snapshot
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	entries, err := s.repo.FindAll(ctx, "")
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot(entries)

	s.mu.Lock()
	s.snapshot = snap
	s.loadedAt = s.now()
	s.mu.Unlock()
	return snap, nil
}

func toResponse(e *entity.CatalogEntry) dto.CatalogEntryResponse {
	return dto.CatalogEntryResponse{Value: e.Value, Label: e.Label}
}

// Snapshot is an immutable view of the catalogs keyed by selection group.
type Snapshot map[form.SelectionGroup]map[string]struct{}

func NewSnapshot(entries []*entity.CatalogEntry) Snapshot {
	snap := Snapshot{}
	for _, e := range entries {
		group := form.SelectionGroup(e.Kind)
		if snap[group] == nil {
			snap[group] = map[string]struct{}{}
		}
		snap[group][e.Value] = struct{}{}
	}
	return snap
}

func (s Snapshot) Contains(group form.SelectionGroup, value string) bool {
	_, ok := s[group][value]
	return ok
}
