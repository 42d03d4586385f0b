package v1

import (
	"github.com/gin-gonic/gin"
)

// CatalogRouteHandler defines the routes every catalog exposes.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Toggle(c *gin.Context)
	Archive(c *gin.Context)
}

// CatalogUpdateHandler is implemented by catalogs with editable fields.
type CatalogUpdateHandler interface {
	Update(c *gin.Context)
}

// RegisterCatalogRoutes registers the standard routes for a catalog.
// PUT /:id is added when the handler supports updates.
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.POST("/:id/toggle", handler.Toggle)
	group.DELETE("/:id", handler.Archive)

	if u, ok := handler.(CatalogUpdateHandler); ok {
		group.PUT("/:id", u.Update)
	}
}
