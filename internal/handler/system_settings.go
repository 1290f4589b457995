package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/models"
	"github.com/BLYNKTECHNOLOGIES/virtual-ledger-pulse-sub007/internal/service"
)

type SystemSettingsHandler struct {
	Settings *service.SystemSettingsService
}

func (h *SystemSettingsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/system-settings")
	g.GET("", h.list)
	g.GET("/switches", h.listSwitches)
	g.PUT("/switches/:name", h.putSwitch)
	g.PUT("/:key", h.put)
}

type putSystemSettingRequest struct {
	Value       any    `json:"value"`
	Description string `json:"description"`
}

type putSwitchRequest struct {
	Enabled *bool `json:"enabled"`
}

// @Summary List system settings
// @Tags system-settings
// @Success 200 {object} apiResponse
// @Router /api/system-settings [get]
func (h *SystemSettingsHandler) list(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	items, err := h.Settings.List(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if items == nil {
		items = []models.SystemSetting{}
	}
	Ok(c, items, nil)
}

// @Summary Store a system setting
// @Tags system-settings
// @Accept json
// @Param key path string true "setting key"
// @Param body body putSystemSettingRequest true "value"
// @Success 200 {object} apiResponse
// @Router /api/system-settings/{key} [put]
func (h *SystemSettingsHandler) put(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	var req putSystemSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	raw, err := json.Marshal(req.Value)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid value", nil)
		return
	}
	item, err := h.Settings.Set(c.Request.Context(), c.Param("key"), raw, req.Description)
	if errors.Is(err, service.ErrInvalidSettingKey) {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List feature switches
// @Tags system-settings
// @Success 200 {object} apiResponse
// @Router /api/system-settings/switches [get]
func (h *SystemSettingsHandler) listSwitches(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	items, err := h.Settings.List(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if !strings.HasPrefix(it.Key, "feature.") {
			continue
		}
		enabled := false
		_ = json.Unmarshal(it.Value, &enabled)
		out = append(out, map[string]any{
			"name":        strings.TrimPrefix(it.Key, "feature."),
			"key":         it.Key,
			"enabled":     enabled,
			"description": it.Description,
			"updated_at":  it.UpdatedAt,
		})
	}
	Ok(c, out, nil)
}

// @Summary Toggle a feature switch
// @Tags system-settings
// @Accept json
// @Param name path string true "switch name without the feature. prefix"
// @Param body body putSwitchRequest true "state"
// @Success 200 {object} apiResponse
// @Router /api/system-settings/switches/{name} [put]
func (h *SystemSettingsHandler) putSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		Error(c, http.StatusBadRequest, "invalid switch name", nil)
		return
	}
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "enabled required", nil)
		return
	}
	key := "feature." + name
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"name":    name,
		"key":     key,
		"enabled": *req.Enabled,
	}, nil)
}
