package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"legalconnect.io/portal/internal/entity"
)

const faqIndex = "faqs"

// SearchHit is one FAQ document as stored in the search index.
type SearchHit struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type FAQIndex interface {
	Index(ctx context.Context, faqs []*entity.FAQ) error
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

type meiliFAQIndex struct {
	client meilisearch.ServiceManager
}

func NewMeiliFAQIndex(client meilisearch.ServiceManager) FAQIndex {
	return &meiliFAQIndex{client: client}
}

// EnsureSettings configures which attributes the faqs index searches.
func EnsureSettings(client meilisearch.ServiceManager) error {
	searchable := []string{"question", "answer"}
	if _, err := client.Index(faqIndex).UpdateSearchableAttributes(&searchable); err != nil {
		return fmt.Errorf("update faqs searchable attributes: %w", err)
	}
	return nil
}

func (m *meiliFAQIndex) Index(ctx context.Context, faqs []*entity.FAQ) error {
	docs := make([]SearchHit, 0, len(faqs))
	for _, f := range faqs {
		if !f.Answered() {
			continue
		}
		docs = append(docs, SearchHit{ID: f.ID.String(), Question: f.Question, Answer: *f.Answer})
	}
	if len(docs) == 0 {
		return nil
	}

	primaryKey := "id"
	if _, err := m.client.Index(faqIndex).AddDocuments(docs, &primaryKey); err != nil {
		return fmt.Errorf("index faqs: %w", err)
	}
	return nil
}

func (m *meiliFAQIndex) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	raw, err := m.client.Index(faqIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("search faqs: %w", err)
	}
	return decodeHits(*raw)
}

func decodeHits(raw []byte) ([]SearchHit, error) {
	var body struct {
		Hits []SearchHit `json:"hits"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return body.Hits, nil
}
