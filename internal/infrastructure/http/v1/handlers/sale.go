package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"salesledger/internal/domain/documents/sale"
	"salesledger/internal/infrastructure/http/v1/dto"
)

// SaleHandler serves the sales ledger.
type SaleHandler struct {
	*BaseHandler
	service *sale.Service
}

// NewSaleHandler creates a sale handler.
func NewSaleHandler(base *BaseHandler, service *sale.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Register handles POST /sales.
func (h *SaleHandler) Register(c *gin.Context) {
	var body dto.RegisterSaleRequest
	if !h.BindJSON(c, &body) {
		return
	}

	req, err := body.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	s, err := h.service.RegisterSale(c.Request.Context(), req)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, s)
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter, err := q.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.ListSales(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.WriteList(c, result.Items, result.TotalCount, result.Limit, result.Offset)
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.PathID(c)
	if !ok {
		return
	}

	s, err := h.service.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// UpdateHeader handles PATCH /sales/:id.
func (h *SaleHandler) UpdateHeader(c *gin.Context) {
	saleID, ok := h.PathID(c)
	if !ok {
		return
	}

	var body dto.UpdateSaleHeaderRequest
	if !h.BindJSON(c, &body) {
		return
	}

	s, err := h.service.UpdateSaleHeader(c.Request.Context(), saleID, body.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Cancel handles POST /sales/:id/cancel.
func (h *SaleHandler) Cancel(c *gin.Context) {
	saleID, ok := h.PathID(c)
	if !ok {
		return
	}

	s, err := h.service.CancelSale(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Archive handles DELETE /sales/:id.
func (h *SaleHandler) Archive(c *gin.Context) {
	saleID, ok := h.PathID(c)
	if !ok {
		return
	}

	if err := h.service.ArchiveSale(c.Request.Context(), saleID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Receipt handles GET /sales/:id/receipt.
func (h *SaleHandler) Receipt(c *gin.Context) {
	saleID, ok := h.PathID(c)
	if !ok {
		return
	}

	pdf, err := h.service.RenderReceipt(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="sale-%s.pdf"`, saleID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// History handles GET /sales/:id/history.
func (h *SaleHandler) History(c *gin.Context) {
	saleID, ok := h.PathID(c)
	if !ok {
		return
	}

	entries, err := h.service.History(c.Request.Context(), saleID, h.ParseIntQuery(c, "limit", 50))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries})
}
