package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"legalconnect.io/portal/internal/entity"
)

type CatalogRepository interface {
	// FindAll lists entries ordered by kind and position. An empty kind
	// lists every catalog.
	FindAll(ctx context.Context, kind string) ([]*entity.CatalogEntry, error)
	// Upsert inserts entries, refreshing label and position of existing ones.
	Upsert(ctx context.Context, entries []*entity.CatalogEntry) error
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) FindAll(ctx context.Context, kind string) ([]*entity.CatalogEntry, error) {
	var entries []*entity.CatalogEntry
	query := r.db.WithContext(ctx)

	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	if err := query.Order("kind").Order("position").Order("value").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *catalogRepository) Upsert(ctx context.Context, entries []*entity.CatalogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "value"}},
		DoUpdates: clause.AssignmentColumns([]string{"label", "position"}),
	}).Create(&entries).Error
}
