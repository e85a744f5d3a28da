package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"legalconnect.io/portal/internal/entity"
)

type FAQRepository interface {
	Create(ctx context.Context, faq *entity.FAQ) error
	FindByQuestion(ctx context.Context, question string) (*entity.FAQ, error)
	FindAnswered(ctx context.Context, limit, offset int) ([]*entity.FAQ, int64, error)
	// SearchAnswered is the database fallback when the search index is
	// unavailable.
	SearchAnswered(ctx context.Context, query string, limit int) ([]*entity.FAQ, error)
}

type faqRepository struct {
	db *gorm.DB
}

func NewFAQRepository(db *gorm.DB) FAQRepository {
	return &faqRepository{db: db}
}

func (r *faqRepository) Create(ctx context.Context, faq *entity.FAQ) error {
	return r.db.WithContext(ctx).Create(faq).Error
}

func (r *faqRepository) FindByQuestion(ctx context.Context, question string) (*entity.FAQ, error) {
	var faq entity.FAQ
	err := r.db.WithContext(ctx).Where("question = ?", question).First(&faq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &faq, nil
}

func (r *faqRepository) answered(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&entity.FAQ{}).
		Where("answer IS NOT NULL AND answer <> '' AND answered_at IS NOT NULL")
}

func (r *faqRepository) FindAnswered(ctx context.Context, limit, offset int) ([]*entity.FAQ, int64, error) {
	var total int64
	if err := r.answered(ctx).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var faqs []*entity.FAQ
	query := r.answered(ctx).Order("answered_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&faqs).Error; err != nil {
		return nil, 0, err
	}
	return faqs, total, nil
}

func (r *faqRepository) SearchAnswered(ctx context.Context, query string, limit int) ([]*entity.FAQ, error) {
	var faqs []*entity.FAQ
	like := "%" + query + "%"
	err := r.answered(ctx).
		Where("question ILIKE ? OR answer ILIKE ?", like, like).
		Order("answered_at DESC").
		Limit(limit).
		Find(&faqs).Error
	return faqs, err
}
