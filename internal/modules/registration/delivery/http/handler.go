package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"legalconnect.io/portal/internal/modules/registration/dto"
	registration "legalconnect.io/portal/internal/modules/registration/service"
	"legalconnect.io/portal/pkg/response"
	"legalconnect.io/portal/pkg/validator"
)

// multipart overhead allowed on top of the document itself
const uploadSlack = 1 << 20

type RegistrationHandler struct {
	service registration.RegistrationService
}

func NewRegistrationHandler(service registration.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

func (h *RegistrationHandler) StartSession(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.StartSession(c.Request.Context(), req.Prefill)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *RegistrationHandler) GetSession(c *gin.Context) {
	sessionID, err := response.GetSessionID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	resp, err := h.service.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RegistrationHandler) UpdateSession(c *gin.Context) {
	sessionID, err := response.GetSessionID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.UpdateFields(c.Request.Context(), sessionID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RegistrationHandler) ToggleSelection(c *gin.Context) {
	sessionID, err := response.GetSessionID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.ToggleSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.ToggleSelection(c.Request.Context(), sessionID, c.Param("group"), req.Value)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UploadDocument accepts a multipart "file". An oversized body is handed to
// the service as a too-large file so the registrant gets the usual toast.
func (h *RegistrationHandler) UploadDocument(c *gin.Context) {
	sessionID, err := response.GetSessionID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, registration.MaxDocumentSize+uploadSlack)

	var file registration.DocumentFile
	header, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		file = registration.DocumentFile{Reader: strings.NewReader(""), Size: registration.MaxDocumentSize + 1}
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	default:
		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
			return
		}
		defer f.Close()
		file = registration.DocumentFile{Reader: f, Name: header.Filename, Size: header.Size}
	}

	resp, err := h.service.UploadDocument(c.Request.Context(), sessionID, c.Param("slot"), file)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RegistrationHandler) ClearDocument(c *gin.Context) {
	sessionID, err := response.GetSessionID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	resp, err := h.service.ClearDocument(c.Request.Context(), sessionID, c.Param("slot"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RegistrationHandler) Submit(c *gin.Context) {
	sessionID, err := response.GetSessionID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), sessionID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RegistrationHandler) EndSession(c *gin.Context) {
	sessionID, err := response.GetSessionID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.EndSession(c.Request.Context(), sessionID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
