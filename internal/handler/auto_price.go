package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/engine"
)

// PassRunner executes one pricing pass.
type PassRunner interface {
	Run(ctx context.Context, req engine.Request) (engine.Response, error)
}

type AutoPriceHandler struct {
	Engine PassRunner
	Logger *zap.Logger
}

type autoPriceFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (h *AutoPriceHandler) Register(r *gin.Engine) {
	r.POST("/api/auto-price-engine", h.run)
}

// @Summary Run the auto pricing engine
// @Description Evaluates every active rule, or exactly one rule when ruleId is given.
// @Tags auto-price
// @Accept json
// @Produce json
// @Param body body engine.Request false "optional rule id"
// @Success 200 {object} engine.Response
// @Failure 500 {object} autoPriceFailure
// @Router /api/auto-price-engine [post]
func (h *AutoPriceHandler) run(c *gin.Context) {
	if h.Engine == nil {
		c.JSON(http.StatusInternalServerError, autoPriceFailure{Error: "engine unavailable"})
		return
	}
	var req engine.Request
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusInternalServerError, autoPriceFailure{Error: err.Error()})
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusInternalServerError, autoPriceFailure{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	resp, err := h.Engine.Run(c.Request.Context(), req)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("auto price pass failed", zap.String("rule_id", req.RuleID), zap.Error(err))
		}
		c.JSON(http.StatusInternalServerError, autoPriceFailure{Error: err.Error()})
		return
	}
	if resp.Results == nil {
		resp.Results = []engine.RuleResult{}
	}
	resp.Success = true
	c.JSON(http.StatusOK, resp)
}
