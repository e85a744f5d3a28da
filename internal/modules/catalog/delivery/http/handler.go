package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legalconnect.io/portal/internal/modules/catalog/dto"
	catalog "legalconnect.io/portal/internal/modules/catalog/service"
	"legalconnect.io/portal/pkg/response"
)

type CatalogHandler struct {
	service catalog.CatalogService
}

func NewCatalogHandler(service catalog.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) GetAllCatalogs(c *gin.Context) {
	catalogs, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, catalogs)
}

func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	var req dto.GetCatalogRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown catalog"})
		return
	}

	entries, err := h.service.GetByKind(c.Request.Context(), req.Kind)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
