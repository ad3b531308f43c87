package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dealerhub/internal/entities"
	"dealerhub/internal/infrastructure"
	"dealerhub/internal/repository"
)

// TelegramHandler handles Telegram bot management endpoints
type TelegramHandler struct {
	manager *infrastructure.BotManager
	bots    *repository.BotRepository
}

// NewTelegramHandler creates a new Telegram handler
func NewTelegramHandler(manager *infrastructure.BotManager, bots *repository.BotRepository) *TelegramHandler {
	return &TelegramHandler{
		manager: manager,
		bots:    bots,
	}
}

// RegisterRoutes registers Telegram management routes
func (h *TelegramHandler) RegisterRoutes(api *gin.RouterGroup) {
	tg := api.Group("/telegram")
	{
		tg.GET("/bots", h.ListBots)
		tg.POST("/bots", h.CreateBot)
		tg.GET("/bots/:botID/status", h.GetStatus)
		tg.POST("/bots/:botID/token", h.SaveToken)
		tg.POST("/bots/:botID/connect", h.Connect)
		tg.POST("/bots/:botID/disconnect", h.Disconnect)
		tg.POST("/validate", h.ValidateToken)
	}
}

// ListBots returns all active bots
func (h *TelegramHandler) ListBots(c *gin.Context) {
	bots, err := h.bots.GetActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list bots"})
		return
	}

	// Never leak tokens over the management API
	type botView struct {
		ID           int    `json:"id"`
		CompanyID    int    `json:"companyId"`
		Username     string `json:"username"`
		ChannelID    string `json:"channelId"`
		DeliveryMode string `json:"deliveryMode"`
		Connected    bool   `json:"connected"`
	}
	views := make([]botView, 0, len(bots))
	for _, b := range bots {
		connected, _ := h.manager.Status(b.ID)
		views = append(views, botView{
			ID:           b.ID,
			CompanyID:    b.CompanyID,
			Username:     b.Username,
			ChannelID:    b.ChannelID,
			DeliveryMode: string(b.DeliveryMode),
			Connected:    connected,
		})
	}

	c.JSON(http.StatusOK, gin.H{"bots": views})
}

// CreateBot registers a new bot after validating its token
func (h *TelegramHandler) CreateBot(c *gin.Context) {
	var req struct {
		CompanyID    int    `json:"companyId"`
		Token        string `json:"token"`
		ChannelID    string `json:"channelId"`
		DeliveryMode string `json:"deliveryMode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.ChannelID != "" && !ValidChannelID(req.ChannelID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel id"})
		return
	}
	if req.DeliveryMode == "" {
		req.DeliveryMode = "polling"
	}
	if req.DeliveryMode != "polling" && req.DeliveryMode != "webhook" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Delivery mode must be polling or webhook"})
		return
	}

	botName, err := h.manager.ValidateToken(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token: " + err.Error()})
		return
	}

	bot := &entities.Bot{
		CompanyID:    req.CompanyID,
		Username:     botName,
		Token:        req.Token,
		ChannelID:    req.ChannelID,
		DeliveryMode: entities.DeliveryMode(req.DeliveryMode),
		IsActive:     true,
	}
	if err := h.bots.Create(c.Request.Context(), bot); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save bot"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       bot.ID,
		"bot_name": "@" + botName,
	})
}

// GetStatus returns the connection status of a bot
func (h *TelegramHandler) GetStatus(c *gin.Context) {
	botID, ok := botParam(c)
	if !ok {
		return
	}

	bot, err := h.bots.Resolve(c.Request.Context(), botID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Bot not found"})
		return
	}

	connected, botName := h.manager.Status(botID)

	c.JSON(http.StatusOK, gin.H{
		"has_token": bot.Token != "",
		"connected": connected,
		"bot_name":  botName,
	})
}

// SaveToken updates a bot's token after validating it
func (h *TelegramHandler) SaveToken(c *gin.Context) {
	botID, ok := botParam(c)
	if !ok {
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Token != "" {
		botName, err := h.manager.ValidateToken(req.Token)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token: " + err.Error()})
			return
		}

		if err := h.bots.UpdateToken(c.Request.Context(), botID, req.Token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save token"})
			return
		}

		// New token means the old connection is stale
		h.manager.Disconnect(botID)

		c.JSON(http.StatusOK, gin.H{
			"status":   "saved",
			"bot_name": botName,
		})
		return
	}

	if err := h.bots.UpdateToken(c.Request.Context(), botID, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear token"})
		return
	}
	h.manager.Disconnect(botID)

	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// ValidateToken checks if a token is valid without saving
func (h *TelegramHandler) ValidateToken(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	botName, err := h.manager.ValidateToken(req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"bot_name": "@" + botName,
	})
}

// Connect starts a bot
func (h *TelegramHandler) Connect(c *gin.Context) {
	botID, ok := botParam(c)
	if !ok {
		return
	}

	bot, err := h.bots.Resolve(c.Request.Context(), botID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No token configured. Please save a bot token first."})
		return
	}

	instance, err := h.manager.Connect(bot)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to connect: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "connected",
		"bot_name": "@" + instance.Bot.Self.UserName,
	})
}

// Disconnect stops a bot
func (h *TelegramHandler) Disconnect(c *gin.Context) {
	botID, ok := botParam(c)
	if !ok {
		return
	}

	h.manager.Disconnect(botID)

	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func botParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("botID"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bot id"})
		return 0, false
	}
	return id, true
}
