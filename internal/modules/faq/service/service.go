package service

import (
	"context"
	"html"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"legalconnect.io/portal/internal/entity"
	"legalconnect.io/portal/internal/modules/faq/dto"
	"legalconnect.io/portal/internal/modules/faq/repository"
	"legalconnect.io/portal/pkg/apperror"
	commonDto "legalconnect.io/portal/pkg/dto"
	"legalconnect.io/portal/pkg/validator"
)

const (
	MsgAsked     = "Question submitted successfully"
	MsgAskFailed = "Failed to submit the question."

	defaultPageSize   = 20
	defaultSearchSize = 10
)

type FAQService interface {
	ListAnswered(ctx context.Context, q commonDto.PageQuery) (*dto.PaginatedFAQResponse, error)
	Ask(ctx context.Context, req dto.AskFAQRequest) (*dto.AskFAQResponse, error)
	Search(ctx context.Context, req dto.SearchFAQRequest) (*dto.SearchFAQResponse, error)
	// Reindex pushes every answered FAQ to the search index.
	Reindex(ctx context.Context) (int, error)
}

type faqService struct {
	repo      repository.FAQRepository
	index     repository.FAQIndex
	sanitizer *bluemonday.Policy
	log       *zap.Logger
}

// NewFAQService builds the service. index may be nil, search then falls back
// to the database.
func NewFAQService(repo repository.FAQRepository, index repository.FAQIndex, logger *zap.Logger) FAQService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &faqService{
		repo:      repo,
		index:     index,
		sanitizer: bluemonday.StrictPolicy(),
		log:       logger.Named("faq"),
	}
}

type askInput struct {
	Question string `json:"question" validate:"required,min=10,max=1000"`
}

func (s *faqService) ListAnswered(ctx context.Context, q commonDto.PageQuery) (*dto.PaginatedFAQResponse, error) {
	q = q.Normalize(defaultPageSize)

	faqs, total, err := s.repo.FindAnswered(ctx, q.Limit, q.Offset())
	if err != nil {
		return nil, err
	}

	data := make([]dto.FAQResponse, 0, len(faqs))
	for _, f := range faqs {
		data = append(data, toResponse(f))
	}
	return &dto.PaginatedFAQResponse{Data: data, Meta: commonDto.NewPaginationMeta(q, total)}, nil
}

func (s *faqService) Ask(ctx context.Context, req dto.AskFAQRequest) (*dto.AskFAQResponse, error) {
	in := askInput{Question: s.clean(req.Question)}
	if errs := validator.Struct(in); errs != nil {
		return nil, apperror.New(http.StatusUnprocessableEntity, errs["question"], apperror.ErrValidation)
	}

	existing, err := s.repo.FindByQuestion(ctx, in.Question)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &dto.AskFAQResponse{ID: existing.ID, Message: MsgAsked}, nil
	}

	faq := &entity.FAQ{Question: in.Question}
	if err := s.repo.Create(ctx, faq); err != nil {
		return nil, err
	}

	s.log.Info("question submitted", zap.String("faq_id", faq.ID.String()))
	return &dto.AskFAQResponse{ID: faq.ID, Message: MsgAsked}, nil
}

func (s *faqService) Search(ctx context.Context, req dto.SearchFAQRequest) (*dto.SearchFAQResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchSize
	}
	query := strings.TrimSpace(req.Query)

	if s.index != nil {
		hits, err := s.index.Search(ctx, query, limit)
		if err == nil {
			data := make([]dto.FAQResponse, 0, len(hits))
			for _, h := range hits {
				id, _ := uuid.Parse(h.ID)
				data = append(data, dto.FAQResponse{ID: id, Question: h.Question, Answer: h.Answer})
			}
			return &dto.SearchFAQResponse{Data: data}, nil
		}
		s.log.Warn("search index unavailable, falling back to database", zap.Error(err))
	}

	faqs, err := s.repo.SearchAnswered(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.FAQResponse, 0, len(faqs))
	for _, f := range faqs {
		data = append(data, toResponse(f))
	}
	return &dto.SearchFAQResponse{Data: data}, nil
}

func (s *faqService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	faqs, _, err := s.repo.FindAnswered(ctx, 0, 0)
	if err != nil {
		return 0, err
	}
	if err := s.index.Index(ctx, faqs); err != nil {
		return 0, err
	}
	return len(faqs), nil
}

// clean strips markup and collapses whitespace.
func (s *faqService) clean(content string) string {
	sanitized := s.sanitizer.Sanitize(content)
	text := html.UnescapeString(sanitized)
	return strings.Join(strings.Fields(text), " ")
}

func toResponse(f *entity.FAQ) dto.FAQResponse {
	resp := dto.FAQResponse{ID: f.ID, Question: f.Question, AnsweredAt: f.AnsweredAt}
	if f.Answer != nil {
		resp.Answer = *f.Answer
	}
	return resp
}
