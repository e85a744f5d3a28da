package bootstrap

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"legalconnect.io/portal/internal/entity"
	catalogRepo "legalconnect.io/portal/internal/modules/catalog/repository"
	faqRepo "legalconnect.io/portal/internal/modules/faq/repository"
	"legalconnect.io/portal/internal/modules/registration/form"
)

//go:embed seeds.yaml
var seedFile []byte

type seedOption struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

type seedFAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

// Seeds is the content loaded into an empty database.
type Seeds struct {
	Catalogs map[string][]seedOption `yaml:"catalogs"`
	FAQs     []seedFAQ               `yaml:"faqs"`
}

func LoadSeeds() (*Seeds, error) {
	return parseSeeds(seedFile)
}

func parseSeeds(data []byte) (*Seeds, error) {
	var seeds Seeds
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse seeds: %w", err)
	}
	for kind := range seeds.Catalogs {
		if _, err := form.ParseSelectionGroup(kind); err != nil {
			return nil, fmt.Errorf("seeds: %w", err)
		}
	}
	return &seeds, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.CatalogEntry{},
		&entity.FAQ{},
	)
}

// CatalogEntries flattens the catalogs, keeping the file order as position.
func (s *Seeds) CatalogEntries() []*entity.CatalogEntry {
	var entries []*entity.CatalogEntry
	for _, group := range form.SelectionGroups {
		for i, opt := range s.Catalogs[string(group)] {
			entries = append(entries, &entity.CatalogEntry{
				Kind:     string(group),
				Value:    opt.Value,
				Label:    opt.Label,
				Position: i,
			})
		}
	}
	return entries
}

func SeedCatalogs(ctx context.Context, repo catalogRepo.CatalogRepository, seeds *Seeds) error {
	entries := seeds.CatalogEntries()
	if err := repo.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("seed catalogs: %w", err)
	}
	zap.L().Info("catalogs seeded", zap.Int("entries", len(entries)))
	return nil
}

// SeedFAQs inserts the answered FAQs that are not stored yet.
func SeedFAQs(ctx context.Context, repo faqRepo.FAQRepository, seeds *Seeds) error {
	created := 0
	for _, f := range seeds.FAQs {
		existing, err := repo.FindByQuestion(ctx, f.Question)
		if err != nil {
			return fmt.Errorf("seed faqs: %w", err)
		}
		if existing != nil {
			continue
		}

		answer := f.Answer
		answeredAt := time.Now()
		if err := repo.Create(ctx, &entity.FAQ{Question: f.Question, Answer: &answer, AnsweredAt: &answeredAt}); err != nil {
			return fmt.Errorf("seed faqs: %w", err)
		}
		created++
	}

	if created > 0 {
		zap.L().Info("faqs seeded", zap.Int("created", created))
	}
	return nil
}
