package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/repository"
)

type PricingLogHandler struct {
	Repo repository.Repository
}

func (h *PricingLogHandler) Register(r *gin.Engine) {
	r.GET("/api/pricing-logs", h.list)
}

// @Summary List pricing log entries
// @Tags pricing-logs
// @Param rule_id query string false "rule id"
// @Param asset query string false "asset code"
// @Param status query string false "applied, skipped, error or no_change"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/pricing-logs [get]
func (h *PricingLogHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 200)
	offset := intQuery(c, "offset", 0)
	params := repository.ListPricingLogsParams{
		Limit:   limit,
		Offset:  offset,
		RuleID:  stringQueryPtr(c, "rule_id"),
		Asset:   stringQueryPtr(c, "asset"),
		Status:  stringQueryPtr(c, "status"),
		OrderBy: "created_at",
		Asc:     boolPtr(false),
	}
	items, err := h.Repo.ListPricingLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountPricingLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if items == nil {
		items = []models.PricingLog{}
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
