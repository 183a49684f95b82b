package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/cmip6-fetch-go/internal/domain"
)

// CatalogHandler serves the static catalog of known identifiers
type CatalogHandler struct {
	catalog *domain.Catalog
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *domain.Catalog) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
	}
}

// ListModes handles GET /api/v1/catalog
func (h *CatalogHandler) ListModes(c *gin.Context) {
	entries := make([]domain.CatalogEntry, 0)
	for _, mode := range h.catalog.Modes() {
		entry, err := h.catalog.Lookup(mode)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	c.JSON(http.StatusOK, entries)
}

// GetMode handles GET /api/v1/catalog/:mode
func (h *CatalogHandler) GetMode(c *gin.Context) {
	mode := domain.Mode(c.Param("mode"))

	entry, err := h.catalog.Lookup(mode)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entry)
}
