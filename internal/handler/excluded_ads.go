package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/repository"
)

type ExcludedAdHandler struct {
	Repo repository.Repository
}

func (h *ExcludedAdHandler) Register(r *gin.Engine) {
	g := r.Group("/api/excluded-ads")
	g.GET("", h.list)
	g.POST("", h.add)
	g.DELETE("/:adNumber", h.remove)
}

type excludeAdRequest struct {
	AdNumber string `json:"ad_number"`
	Reason   string `json:"reason"`
}

// @Summary List excluded listings
// @Tags excluded-ads
// @Success 200 {object} apiResponse
// @Router /api/excluded-ads [get]
func (h *ExcludedAdHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListExcludedAds(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if items == nil {
		items = []models.ExcludedAd{}
	}
	Ok(c, items, nil)
}

// @Summary Exclude a listing from automation
// @Tags excluded-ads
// @Accept json
// @Param body body excludeAdRequest true "listing"
// @Success 200 {object} apiResponse
// @Router /api/excluded-ads [post]
func (h *ExcludedAdHandler) add(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	var req excludeAdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item := &models.ExcludedAd{
		AdNumber: strings.TrimSpace(req.AdNumber),
		Reason:   strings.TrimSpace(req.Reason),
	}
	if item.AdNumber == "" {
		Error(c, http.StatusBadRequest, "ad_number required", nil)
		return
	}
	if err := h.Repo.UpsertExcludedAd(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary Remove a listing exclusion
// @Tags excluded-ads
// @Param adNumber path string true "listing number"
// @Success 200 {object} apiResponse
// @Router /api/excluded-ads/{adNumber} [delete]
func (h *ExcludedAdHandler) remove(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	adNumber := strings.TrimSpace(c.Param("adNumber"))
	if adNumber == "" {
		Error(c, http.StatusBadRequest, "ad number required", nil)
		return
	}
	if err := h.Repo.DeleteExcludedAd(c.Request.Context(), adNumber); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"ad_number": adNumber}, nil)
}
