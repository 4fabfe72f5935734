package handlers

import (
	"net/http"
	"strconv"

	"mito-gallery-service/internal/adapters/primary/http/dto"
	"mito-gallery-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const maxPerPage = 100

func parseID(c *gin.Context, param string, invalid error) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		return 0, invalid
	}
	return id, nil
}

// parsePaging reads ?page and ?per_page. Missing values fall back to page 1
// and the service default page size; out-of-range pages are clamped later.
func parsePaging(c *gin.Context) (int, int, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 0, 0, domain.ErrInvalidPageParam
	}
	perPage := 0
	if raw := c.Query("per_page"); raw != "" {
		perPage, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, domain.ErrInvalidPageParam
		}
		if perPage > maxPerPage {
			perPage = maxPerPage
		}
	}
	return page, perPage, nil
}

func (h *Handler) ListNeurons(c *gin.Context) {
	groups := h.catalogSvc.Groups()
	c.JSON(http.StatusOK, dto.ListNeuronsResponse{Items: groups, Total: len(groups)})
}

func (h *Handler) GetMitosForNeuron(c *gin.Context) {
	neuronID, err := parseID(c, "neuron_id", domain.ErrInvalidNeuronID)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	page, perPage, err := parsePaging(c)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	result, err := h.catalogSvc.GetPage(c.Request.Context(), neuronID, page, perPage)
	if err != nil {
		log.WithError(err).WithField("neuron_id", neuronID).Error("get mitos failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMitosPageResponse(result, h.catalogSvc.ViewState, h.placeholderURL))
}

func (h *Handler) GetNeuroglancerURL(c *gin.Context) {
	mitoID, err := parseID(c, "mito_id", domain.ErrInvalidEntityID)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	neuronID, err := parseID(c, "neuron_id", domain.ErrInvalidNeuronID)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	url, err := h.catalogSvc.ViewerURL(mitoID, neuronID)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NeuroglancerURLResponse{URL: url})
}
