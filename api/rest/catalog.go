package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/creaturebattle/server/resource"
)

// CatalogHandler serves the read-only species, move and type tables that
// clients need to build teams and render battles.
type CatalogHandler struct {
	res *resource.ResourceLoader
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(res *resource.ResourceLoader) *CatalogHandler {
	return &CatalogHandler{res: res}
}

// Types handles GET /api/catalog/types.
func (h *CatalogHandler) Types(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"types": resource.AllTypes(),
		"chart": resource.Chart().Rows(),
	})
}

// Moves handles GET /api/catalog/moves.
func (h *CatalogHandler) Moves(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"moves": h.res.Moves()})
}

// Species handles GET /api/catalog/species.
func (h *CatalogHandler) Species(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"species": h.res.Species()})
}

// SpeciesByID handles GET /api/catalog/species/:id.
func (h *CatalogHandler) SpeciesByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	sp := h.res.SpeciesByID(id)
	if sp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "species not found"})
		return
	}
	moves := make([]*resource.MoveDefinition, 0, len(sp.Moves))
	for _, mid := range sp.Moves {
		if m := h.res.MoveByID(mid); m != nil {
			moves = append(moves, m)
		}
	}
	c.JSON(http.StatusOK, gin.H{"species": sp, "moves": moves})
}

// Teams handles GET /api/catalog/teams.
func (h *CatalogHandler) Teams(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"teams": h.res.Teams()})
}
