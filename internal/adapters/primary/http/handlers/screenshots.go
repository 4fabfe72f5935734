package handlers

import (
	"fmt"
	"net/http"

	"mito-gallery-service/internal/adapters/primary/http/dto"
	"mito-gallery-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) GenerateScreenshots(c *gin.Context) {
	neuronID, err := parseID(c, "neuron_id", domain.ErrInvalidNeuronID)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, dto.GenerateScreenshotsResponse{Error: publicMessage(err, status)})
		return
	}
	page, perPage, err := parsePaging(c)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, dto.GenerateScreenshotsResponse{Error: publicMessage(err, status)})
		return
	}

	report, err := h.catalogSvc.GenerateForPage(c.Request.Context(), neuronID, page, perPage)
	if err != nil {
		log.WithError(err).WithField("neuron_id", neuronID).Error("generate screenshots failed")
		status := statusFor(err)
		c.JSON(status, dto.GenerateScreenshotsResponse{Error: publicMessage(err, status)})
		return
	}

	c.JSON(http.StatusOK, dto.ToGenerateScreenshotsResponse(report))
}

func (h *Handler) RestartScreenshots(c *gin.Context) {
	removed, err := h.catalogSvc.ClearArtifacts(c.Request.Context())
	if err != nil {
		log.WithError(err).WithField("removed", removed).Error("restart screenshots failed")
		status := statusFor(err)
		c.JSON(status, dto.RestartScreenshotsResponse{
			Error:   publicMessage(err, status),
			Removed: removed,
		})
		return
	}

	c.JSON(http.StatusOK, dto.RestartScreenshotsResponse{
		Success: true,
		Message: fmt.Sprintf("Removed %d screenshots", removed),
		Removed: removed,
	})
}
