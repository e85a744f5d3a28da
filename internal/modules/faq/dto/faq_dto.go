package dto

import (
	"time"

	"github.com/google/uuid"

	commonDto "legalconnect.io/portal/pkg/dto"
)

type FAQResponse struct {
	ID         uuid.UUID  `json:"id"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

type PaginatedFAQResponse struct {
	Data []FAQResponse            `json:"data"`
	Meta commonDto.PaginationMeta `json:"meta"`
}

type AskFAQRequest struct {
	Question string `json:"question" binding:"required"`
}

type AskFAQResponse struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

type SearchFAQRequest struct {
	Query string `form:"q" binding:"required,max=200"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type SearchFAQResponse struct {
	Data []FAQResponse `json:"data"`
}
