package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// MenuController exposes the read-only catalog the POS orders from.
type MenuController struct {
	Catalog services.CatalogReader
}

func NewMenuController(catalog services.CatalogReader) *MenuController {
	return &MenuController{Catalog: catalog}
}

// GetProducts -> ?all=true juga menampilkan produk nonaktif
func (mc *MenuController) GetProducts(c *gin.Context) {
	products, err := mc.Catalog.ListProducts(c.Request.Context(), c.Param("outlet_id"), c.Query("all") != "true")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", products)
}
