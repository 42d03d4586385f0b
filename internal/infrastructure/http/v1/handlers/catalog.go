package handlers

import (
	"github.com/gin-gonic/gin"

	"salesledger/internal/domain"
)

// CatalogHandler provides generic HTTP handlers for catalog entities.
type CatalogHandler[T domain.CatalogEntity, CreateDTO any] struct {
	*BaseHandler
	service     *domain.CatalogService[T]
	mapCreateFn func(CreateDTO) T
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler[T domain.CatalogEntity, CreateDTO any](
	base *BaseHandler,
	service *domain.CatalogService[T],
	mapCreate func(CreateDTO) T,
) *CatalogHandler[T, CreateDTO] {
	return &CatalogHandler[T, CreateDTO]{
		BaseHandler: base,
		service:     service,
		mapCreateFn: mapCreate,
	}
}

// List handles GET /{entity}.
func (h *CatalogHandler[T, CreateDTO]) List(c *gin.Context) {
	filter := domain.DefaultListFilter()
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", filter.Limit)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.IncludeArchived = c.Query("includeArchived") == "true"
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.Active = &v
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.WriteList(c, result.Items, result.TotalCount, result.Limit, result.Offset)
}

// Get handles GET /{entity}/:id.
func (h *CatalogHandler[T, CreateDTO]) Get(c *gin.Context) {
	entityID, ok := h.PathID(c)
	if !ok {
		return
	}

	entity, err := h.service.GetByID(c.Request.Context(), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entity)
}

// Create handles POST /{entity}.
func (h *CatalogHandler[T, CreateDTO]) Create(c *gin.Context) {
	var req CreateDTO
	if !h.BindJSON(c, &req) {
		return
	}

	entity := h.mapCreateFn(req)
	if err := h.service.Create(c.Request.Context(), entity); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, entity)
}

// Toggle handles POST /{entity}/:id/toggle.
func (h *CatalogHandler[T, CreateDTO]) Toggle(c *gin.Context) {
	entityID, ok := h.PathID(c)
	if !ok {
		return
	}

	entity, err := h.service.Toggle(c.Request.Context(), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entity)
}

// Archive handles DELETE /{entity}/:id.
func (h *CatalogHandler[T, CreateDTO]) Archive(c *gin.Context) {
	entityID, ok := h.PathID(c)
	if !ok {
		return
	}

	if err := h.service.Archive(c.Request.Context(), entityID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
