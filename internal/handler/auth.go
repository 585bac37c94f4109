package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuno-ai/yuno-api/internal/metrics"
	"github.com/yuno-ai/yuno-api/internal/quota"
	"github.com/yuno-ai/yuno-api/internal/service"
	"github.com/yuno-ai/yuno-api/internal/token"
)

type AuthHandler struct {
	sites     *service.SiteService
	authority *token.Authority
	guard     *quota.Guard
	metrics   *metrics.Metrics
}

func NewAuthHandler(sites *service.SiteService, authority *token.Authority, guard *quota.Guard, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		sites:     sites,
		authority: authority,
		guard:     guard,
		metrics:   m,
	}
}

// Authenticate is the widget handshake: the embedding page proves which
// site it belongs to and on which domain it runs, and receives a session
// token scoped to that identity.
// POST /widget/authenticate
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req struct {
		SiteID string `json:"site_id" binding:"required"`
		Domain string `json:"domain" binding:"required"`
		Nonce  string `json:"nonce" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required field", "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	site, err := h.sites.Authenticate(ctx, req.SiteID, req.Domain)
	if err != nil {
		h.rejectAuthenticate(c, req.SiteID, req.Domain, err)
		return
	}

	signed, err := h.authority.Issue(req.SiteID, req.Domain, req.Nonce, site.PlanType, 0)
	if err != nil {
		log.Printf("failed to issue token for site %s: %v", req.SiteID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "authentication_failed",
			"message": "Internal authentication error",
		})
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssued.Inc()
	}

	limits := h.guard.Limits(site.PlanType)

	c.JSON(http.StatusOK, gin.H{
		"token":      signed,
		"expires_in": int(h.authority.TTL() / time.Second),
		"rate_limits": gin.H{
			"requests_per_minute": limits.PerMinute,
			"requests_per_hour":   limits.PerHour,
			"requests_per_day":    limits.PerDay,
		},
		"site_config": gin.H{
			"theme":         site.Theme,
			"custom_config": site.CustomConfig,
		},
	})
}

func (h *AuthHandler) rejectAuthenticate(c *gin.Context, siteID, domain string, err error) {
	switch {
	case errors.Is(err, service.ErrSiteNotFound):
		log.Printf("authentication failed - invalid site_id: %s", siteID)
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_site", "message": "Site not found"})
	case errors.Is(err, service.ErrDomainNotOwned):
		log.Printf("authentication failed - domain mismatch. site_id: %s, domain: %s", siteID, domain)
		c.JSON(http.StatusForbidden, gin.H{"error": "domain_not_authorized", "message": "Widget not authorized for this domain"})
	case errors.Is(err, service.ErrPlanInactive):
		log.Printf("authentication failed - inactive plan for site_id: %s", siteID)
		c.JSON(http.StatusForbidden, gin.H{"error": "plan_inactive", "message": "Service subscription is not active"})
	case errors.Is(err, service.ErrWidgetDisabled):
		log.Printf("authentication failed - widget disabled for site_id: %s", siteID)
		c.JSON(http.StatusForbidden, gin.H{"error": "widget_disabled", "message": "Widget has been temporarily disabled"})
	default:
		log.Printf("authentication error for site_id %s: %v", siteID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication_failed", "message": "Internal authentication error"})
	}
}

// Verify reports whether a presented token is still valid.
// POST /widget/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	tokenString, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid authorization header"})
		return
	}

	claims, err := h.authority.Verify(tokenString)
	if err != nil {
		if h.metrics != nil {
			h.metrics.AuthFailures.WithLabelValues(token.Kind(err)).Inc()
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid or expired token", "valid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"site_id":    claims.SiteID,
		"domain":     claims.Domain,
		"plan_type":  claims.PlanType,
		"expires_at": claims.ExpiresAt.Unix(),
	})
}

// Refresh exchanges a still-valid token for a fresh one. Expired tokens
// cannot be refreshed; the widget must re-authenticate.
// POST /widget/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	tokenString, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid authorization header"})
		return
	}

	signed, err := h.authority.Refresh(tokenString)
	if err != nil {
		if h.metrics != nil {
			h.metrics.AuthFailures.WithLabelValues(token.Kind(err)).Inc()
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid or expired token"})
		return
	}

	if h.metrics != nil {
		h.metrics.TokensIssued.Inc()
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      signed,
		"expires_in": int(h.authority.TTL() / time.Second),
	})
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
