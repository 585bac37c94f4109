package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yuno-ai/yuno-api/internal/middleware"
	"github.com/yuno-ai/yuno-api/internal/quota"
)

type UsageHandler struct {
	guard *quota.Guard
}

func NewUsageHandler(guard *quota.Guard) *UsageHandler {
	return &UsageHandler{guard: guard}
}

// Usage returns the authenticated site's per-window consumption. Reading
// usage is not itself metered.
// GET /widget/usage
func (h *UsageHandler) Usage(c *gin.Context) {
	siteID := c.GetString(middleware.CtxSiteID)
	plan := c.GetString(middleware.CtxPlanType)

	usage, err := h.guard.Usage(c.Request.Context(), siteID, plan)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "usage_unavailable",
			"message": "Usage statistics are temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"site_id": siteID,
		"plan":    plan,
		"usage":   usage,
	})
}
