package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legalconnect.io/portal/internal/modules/signin/dto"
	signin "legalconnect.io/portal/internal/modules/signin/service"
	"legalconnect.io/portal/pkg/apperror"
	"legalconnect.io/portal/pkg/response"
	"legalconnect.io/portal/pkg/validator"
)

type SignInHandler struct {
	service signin.SignInService
}

func NewSignInHandler(service signin.SignInService) *SignInHandler {
	return &SignInHandler{service: service}
}

func (h *SignInHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.SignIn(c.Request.Context(), req)
	var invalid *signin.InvalidFieldsError
	switch {
	case errors.As(err, &invalid):
		response.ValidationError(c, invalid.Fields)
	case err != nil && resp != nil:
		c.JSON(apperror.MapErrorToStatus(err), resp)
	case err != nil:
		response.ResponseError(c, err)
	default:
		c.JSON(http.StatusOK, resp)
	}
}
