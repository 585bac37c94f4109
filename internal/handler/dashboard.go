package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yuno-ai/yuno-api/internal/models"
	"github.com/yuno-ai/yuno-api/internal/quota"
	"github.com/yuno-ai/yuno-api/internal/service"
)

type DashboardHandler struct {
	dashboard *service.DashboardService
	sites     *service.SiteService
	guard     *quota.Guard
}

func NewDashboardHandler(dashboard *service.DashboardService, sites *service.SiteService, guard *quota.Guard) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		sites:     sites,
		guard:     guard,
	}
}

// POST /dashboard/register
func (h *DashboardHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Name     string `json:"name"`
		SiteID   string `json:"site_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	if err := h.dashboard.Register(c.Request.Context(), req.Email, req.Password, req.Name, req.SiteID); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "registration_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "account created"})
}

// POST /dashboard/login
func (h *DashboardHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	signed, user, err := h.dashboard.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed", "message": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": signed,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}

// POST /dashboard/sites
func (h *DashboardHandler) CreateSite(c *gin.Context) {
	var req struct {
		Domain   string `json:"domain" binding:"required"`
		PlanType string `json:"plan_type"`
		Theme    string `json:"theme"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	site := &models.Site{
		Domain:        req.Domain,
		PlanType:      req.PlanType,
		PlanActive:    true,
		WidgetEnabled: true,
		Theme:         req.Theme,
	}
	if site.PlanType == "" {
		site.PlanType = "free"
	}
	if site.Theme == "" {
		site.Theme = "dark"
	}

	if err := h.sites.Create(c.Request.Context(), site); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, site)
}

// GET /dashboard/sites
func (h *DashboardHandler) ListSites(c *gin.Context) {
	sites, err := h.sites.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sites)
}

// PATCH /dashboard/sites/:id
func (h *DashboardHandler) UpdateSite(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		PlanType      *string `json:"plan_type"`
		PlanActive    *bool   `json:"plan_active"`
		WidgetEnabled *bool   `json:"widget_enabled"`
		Theme         *string `json:"theme"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	updates := make(map[string]interface{})
	if req.PlanType != nil {
		updates["plan_type"] = *req.PlanType
	}
	if req.PlanActive != nil {
		updates["plan_active"] = *req.PlanActive
	}
	if req.WidgetEnabled != nil {
		updates["widget_enabled"] = *req.WidgetEnabled
	}
	if req.Theme != nil {
		updates["theme"] = *req.Theme
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "no fields to update"})
		return
	}

	if err := h.sites.Update(c.Request.Context(), id, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "site updated"})
}

// GET /dashboard/sites/:id/usage
func (h *DashboardHandler) SiteUsage(c *gin.Context) {
	id := c.Param("id")

	site, err := h.sites.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed", "message": err.Error()})
		return
	}
	if site == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_site", "message": "Site not found"})
		return
	}

	usage, err := h.guard.Usage(c.Request.Context(), id, site.PlanType)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "usage_unavailable", "message": "Usage statistics are temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"site_id": id, "plan": site.PlanType, "usage": usage})
}

// POST /dashboard/sites/:id/quota/reset
func (h *DashboardHandler) ResetQuota(c *gin.Context) {
	id := c.Param("id")

	if err := h.guard.ResetAll(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reset_failed", "message": "Could not reset counters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "quota reset", "site_id": id})
}
