package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"legalconnect.io/portal/internal/modules/faq/dto"
	faq "legalconnect.io/portal/internal/modules/faq/service"
	"legalconnect.io/portal/pkg/apperror"
	commonDto "legalconnect.io/portal/pkg/dto"
	"legalconnect.io/portal/pkg/response"
	"legalconnect.io/portal/pkg/validator"
)

type FAQHandler struct {
	service faq.FAQService
}

func NewFAQHandler(service faq.FAQService) *FAQHandler {
	return &FAQHandler{service: service}
}

func (h *FAQHandler) GetAnsweredFAQs(c *gin.Context) {
	var q commonDto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	faqs, err := h.service.ListAnswered(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, faqs)
}

func (h *FAQHandler) AskFAQ(c *gin.Context) {
	var req dto.AskFAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": faq.MsgAskFailed, "details": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.Ask(c.Request.Context(), req)
	if err != nil {
		status := apperror.MapErrorToStatus(err)
		body := gin.H{"error": faq.MsgAskFailed}
		if status < http.StatusInternalServerError {
			body["details"] = err.Error()
		} else {
			zap.L().Error("ask faq failed", zap.Error(err))
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *FAQHandler) SearchFAQs(c *gin.Context) {
	var req dto.SearchFAQRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
