package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/pricing"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/repository"
)

type PricingRuleHandler struct {
	Repo repository.Repository
	Now  func() time.Time
}

func (h *PricingRuleHandler) Register(r *gin.Engine) {
	g := r.Group("/api/pricing-rules")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
	g.POST("/:id/manual-edit", h.manualEdit)
	g.POST("/:id/resume", h.resume)
}

// @Summary List pricing rules
// @Tags pricing-rules
// @Param active query bool false "active filter"
// @Param trade_type query string false "BUY or SELL"
// @Param asset query string false "asset code"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/pricing-rules [get]
func (h *PricingRuleHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListPricingRulesParams{
		Limit:     intQuery(c, "limit", 100),
		Offset:    intQuery(c, "offset", 0),
		Active:    boolQueryPtr(c, "active"),
		TradeType: stringQueryPtr(c, "trade_type"),
		Asset:     stringQueryPtr(c, "asset"),
		OrderBy:   "created_at",
		Asc:       boolPtr(true),
	}
	items, err := h.Repo.ListPricingRules(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if items == nil {
		items = []models.PricingRule{}
	}
	Ok(c, items, nil)
}

// @Summary Get a pricing rule
// @Tags pricing-rules
// @Param id path string true "rule id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/pricing-rules/{id} [get]
func (h *PricingRuleHandler) get(c *gin.Context) {
	item, ok := h.load(c)
	if !ok {
		return
	}
	Ok(c, item, nil)
}

// @Summary Create a pricing rule
// @Tags pricing-rules
// @Accept json
// @Param body body models.PricingRule true "rule"
// @Success 201 {object} apiResponse
// @Router /api/pricing-rules [post]
func (h *PricingRuleHandler) create(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	item := models.PricingRule{IsActive: true}
	if err := c.ShouldBindJSON(&item); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	item.ID = uuid.NewString()
	resetRuntimeState(&item)
	if err := normalizeRule(&item); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Repo.CreatePricingRule(c.Request.Context(), &item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Created(c, item)
}

// @Summary Update a pricing rule
// @Description Fields absent from the body keep their stored value. Engine
// @Description state columns are never written by this endpoint.
// @Tags pricing-rules
// @Accept json
// @Param id path string true "rule id"
// @Param body body models.PricingRule true "rule"
// @Success 200 {object} apiResponse
// @Router /api/pricing-rules/{id} [put]
func (h *PricingRuleHandler) update(c *gin.Context) {
	existing, ok := h.load(c)
	if !ok {
		return
	}
	next := *existing
	if err := c.ShouldBindJSON(&next); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	next.ID = existing.ID
	next.CreatedAt = existing.CreatedAt
	if err := normalizeRule(&next); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Repo.UpdatePricingRuleFields(c.Request.Context(), existing.ID, settingsColumns(&next)); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	item, err := h.Repo.GetPricingRule(c.Request.Context(), existing.ID)
	if err != nil || item == nil {
		item = &next
	}
	Ok(c, item, nil)
}

// @Summary Delete a pricing rule
// @Tags pricing-rules
// @Param id path string true "rule id"
// @Success 200 {object} apiResponse
// @Router /api/pricing-rules/{id} [delete]
func (h *PricingRuleHandler) remove(c *gin.Context) {
	item, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.Repo.DeletePricingRule(c.Request.Context(), item.ID); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"id": item.ID}, nil)
}

// @Summary Record a manual price edit
// @Description Starts the manual-override cooldown of the rule and forgets the
// @Description last applied values so the engine reprices once it ends.
// @Tags pricing-rules
// @Param id path string true "rule id"
// @Success 200 {object} apiResponse
// @Router /api/pricing-rules/{id}/manual-edit [post]
func (h *PricingRuleHandler) manualEdit(c *gin.Context) {
	item, ok := h.load(c)
	if !ok {
		return
	}
	now := h.now()
	if err := h.Repo.UpdatePricingRuleFields(c.Request.Context(), item.ID, map[string]any{
		"last_manual_edit_at": now,
		"last_applied_price":  decimal.NullDecimal{},
		"last_applied_ratio":  decimal.NullDecimal{},
		"asset_state":         withoutApplied(item.AssetState),
	}); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	resp := map[string]any{"id": item.ID, "last_manual_edit_at": now}
	if until, cooling := pricing.CooldownUntil(now, &now, item.ManualOverrideCooldownMinutes); cooling {
		resp["cooldown_until"] = until
	}
	Ok(c, resp, nil)
}

// @Summary Resume a paused rule
// @Description Re-activates the rule and clears its deviation counter.
// @Tags pricing-rules
// @Param id path string true "rule id"
// @Success 200 {object} apiResponse
// @Router /api/pricing-rules/{id}/resume [post]
func (h *PricingRuleHandler) resume(c *gin.Context) {
	item, ok := h.load(c)
	if !ok {
		return
	}
	if err := h.Repo.UpdatePricingRuleFields(c.Request.Context(), item.ID, map[string]any{
		"is_active":              true,
		"consecutive_deviations": 0,
	}); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{"id": item.ID, "is_active": true}, nil)
}

func (h *PricingRuleHandler) load(c *gin.Context) (*models.PricingRule, bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return nil, false
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "id required", nil)
		return nil, false
	}
	item, err := h.Repo.GetPricingRule(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	if item == nil {
		Error(c, http.StatusNotFound, "pricing rule not found", nil)
		return nil, false
	}
	return item, true
}

func (h *PricingRuleHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

// resetRuntimeState clears the fields the engine owns so a create request
// cannot seed them.
func resetRuntimeState(rule *models.PricingRule) {
	rule.ConsecutiveDeviations = 0
	rule.ConsecutiveErrors = 0
	rule.LastError = nil
	rule.LastCheckedAt = nil
	rule.LastMatchedMerchant = ""
	rule.LastCompetitorPrice = decimal.NullDecimal{}
	rule.LastDeviationPct = decimal.NullDecimal{}
	rule.LastAppliedPrice = decimal.NullDecimal{}
	rule.LastAppliedRatio = decimal.NullDecimal{}
	rule.AssetState = datatypes.JSONType[map[string]models.AssetState]{}
	rule.LastManualEditAt = nil
}

// settingsColumns lists the operator-owned columns of a rule. Updates go
// through it so a PUT never overwrites state the engine wrote meanwhile.
func settingsColumns(rule *models.PricingRule) map[string]any {
	return map[string]any{
		"name":                             rule.Name,
		"is_active":                        rule.IsActive,
		"trade_type":                       rule.TradeType,
		"fiat":                             rule.Fiat,
		"asset":                            rule.Asset,
		"assets":                           rule.Assets,
		"asset_config":                     rule.AssetConfig,
		"ad_numbers":                       rule.AdNumbers,
		"price_type":                       rule.PriceType,
		"offset_amount":                    rule.OffsetAmount,
		"offset_pct":                       rule.OffsetPct,
		"offset_direction":                 rule.OffsetDirection,
		"max_ceiling":                      rule.MaxCeiling,
		"min_floor":                        rule.MinFloor,
		"max_ratio_ceiling":                rule.MaxRatioCeiling,
		"min_ratio_floor":                  rule.MinRatioFloor,
		"max_price_change_per_cycle":       rule.MaxPriceChangePerCycle,
		"max_ratio_change_per_cycle":       rule.MaxRatioChangePerCycle,
		"max_deviation_from_market_pct":    rule.MaxDeviationFromMarketPct,
		"auto_pause_after_deviations":      rule.AutoPauseAfterDeviations,
		"active_hours_start":               rule.ActiveHoursStart,
		"active_hours_end":                 rule.ActiveHoursEnd,
		"resting_price":                    rule.RestingPrice,
		"resting_ratio":                    rule.RestingRatio,
		"manual_override_cooldown_minutes": rule.ManualOverrideCooldownMinutes,
		"target_merchant":                  rule.TargetMerchant,
		"fallback_merchants":               rule.FallbackMerchants,
		"only_counter_when_online":         rule.OnlyCounterWhenOnline,
		"pause_if_no_merchant_found":       rule.PauseIfNoMerchantFound,
	}
}

func withoutApplied(state datatypes.JSONType[map[string]models.AssetState]) datatypes.JSONType[map[string]models.AssetState] {
	next := make(map[string]models.AssetState, len(state.Data()))
	for asset, st := range state.Data() {
		st.LastAppliedPrice = nil
		st.LastAppliedRatio = nil
		next[asset] = st
	}
	return datatypes.NewJSONType(next)
}

func normalizeRule(rule *models.PricingRule) error {
	rule.Name = strings.TrimSpace(rule.Name)
	if rule.Name == "" {
		return errors.New("name is required")
	}
	rule.TradeType = strings.ToUpper(strings.TrimSpace(rule.TradeType))
	if rule.TradeType != models.TradeTypeBuy && rule.TradeType != models.TradeTypeSell {
		return errors.New("trade_type must be BUY or SELL")
	}
	rule.PriceType = strings.ToUpper(strings.TrimSpace(rule.PriceType))
	if rule.PriceType == "" {
		rule.PriceType = models.PriceTypeFixed
	}
	if rule.PriceType != models.PriceTypeFixed && rule.PriceType != models.PriceTypeFloating {
		return errors.New("price_type must be FIXED or FLOATING")
	}
	rule.OffsetDirection = strings.ToUpper(strings.TrimSpace(rule.OffsetDirection))
	if rule.OffsetDirection == "" {
		rule.OffsetDirection = models.OffsetUndercut
	}
	if rule.OffsetDirection != models.OffsetOvercut && rule.OffsetDirection != models.OffsetUndercut {
		return errors.New("offset_direction must be OVERCUT or UNDERCUT")
	}
	rule.Fiat = strings.ToUpper(strings.TrimSpace(rule.Fiat))
	if rule.Fiat == "" {
		rule.Fiat = "INR"
	}
	rule.Asset = strings.ToUpper(strings.TrimSpace(rule.Asset))
	if rule.Asset == "" {
		rule.Asset = "USDT"
	}
	rule.TargetMerchant = strings.TrimSpace(rule.TargetMerchant)
	if rule.TargetMerchant == "" {
		return errors.New("target_merchant is required")
	}
	assets := make([]string, 0, len(rule.Assets))
	for _, a := range rule.Assets {
		if a = strings.ToUpper(strings.TrimSpace(a)); a != "" {
			assets = append(assets, a)
		}
	}
	rule.Assets = assets
	rule.ActiveHoursStart = strings.TrimSpace(rule.ActiveHoursStart)
	rule.ActiveHoursEnd = strings.TrimSpace(rule.ActiveHoursEnd)
	if _, err := pricing.InActiveWindow(time.Now(), time.UTC, rule.ActiveHoursStart, rule.ActiveHoursEnd); err != nil {
		return err
	}
	if rule.ManualOverrideCooldownMinutes < 0 || rule.AutoPauseAfterDeviations < 0 {
		return errors.New("cooldown and auto-pause thresholds must not be negative")
	}
	if rule.MinFloor.Valid && rule.MaxCeiling.Valid && rule.MinFloor.Decimal.GreaterThan(rule.MaxCeiling.Decimal) {
		return errors.New("min_floor must not exceed max_ceiling")
	}
	if rule.MinRatioFloor.Valid && rule.MaxRatioCeiling.Valid && rule.MinRatioFloor.Decimal.GreaterThan(rule.MaxRatioCeiling.Decimal) {
		return errors.New("min_ratio_floor must not exceed max_ratio_ceiling")
	}
	return nil
}
