package handlers

import (
	"mito-gallery-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	catalogSvc     *services.CatalogService
	placeholderURL string
}

func New(catalogSvc *services.CatalogService, placeholderURL string) *Handler {
	return &Handler{
		catalogSvc:     catalogSvc,
		placeholderURL: placeholderURL,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Catalog
	r.GET("/neurons", h.ListNeurons)
	r.GET("/get_mitos_for_neuron/:neuron_id", h.GetMitosForNeuron)

	// Screenshots
	r.GET("/generate_screenshots/:neuron_id", h.GenerateScreenshots)
	r.POST("/restart_screenshots", h.RestartScreenshots)

	// External viewer
	r.GET("/get_neuroglancer_url/:mito_id/:neuron_id", h.GetNeuroglancerURL)
}
