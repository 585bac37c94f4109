package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yuno-ai/yuno-api/internal/middleware"
	"github.com/yuno-ai/yuno-api/internal/service"
)

// ChatHandler serves the protected widget chat endpoint. It sits behind
// the full access pipeline (session + quota); the reply generation itself
// is delegated to the injected completer.
type ChatHandler struct {
	completer service.ChatCompleter
}

func NewChatHandler(completer service.ChatCompleter) *ChatHandler {
	return &ChatHandler{completer: completer}
}

// POST /widget/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	siteID := c.GetString(middleware.CtxSiteID)

	reply, err := h.completer.Complete(c.Request.Context(), siteID, req.Message)
	if err != nil {
		log.Printf("[%s] chat completion failed for site %s: %v", c.GetString("request_id"), siteID, err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "completion_failed",
			"message": "Could not generate a reply",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
