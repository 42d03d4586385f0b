package handlers

import (
	"github.com/gin-gonic/gin"

	"salesledger/internal/domain/catalogs/product"
	"salesledger/internal/infrastructure/http/v1/dto"
)

// ProductHandler serves the product catalog. Reads go through the cache.
type ProductHandler struct {
	*CatalogHandler[*product.Product, dto.CreateProductRequest]
	service *product.Service
}

// NewProductHandler creates a product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{
		CatalogHandler: NewCatalogHandler(base, service.CatalogService, dto.CreateProductRequest.ToEntity),
		service:        service,
	}
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.PathID(c)
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Update handles PUT /products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.PathID(c)
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.UpdateFields(c.Request.Context(), productID, req.ToPatch())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}
