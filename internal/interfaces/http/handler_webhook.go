package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dealerhub/internal/entities"
	"dealerhub/internal/infrastructure"
	"dealerhub/internal/repository"
	"dealerhub/internal/usecases"
)

// WebhookHandler is the push-mode ingress for Telegram updates. Telegram
// retries deliveries it considers failed, so we always answer 200 once the
// body parses; duplicates are absorbed by the engine's dedup window.
type WebhookHandler struct {
	engine  *usecases.Engine
	manager *infrastructure.BotManager
	bots    *repository.BotRepository
	log     zerolog.Logger
}

func NewWebhookHandler(engine *usecases.Engine, manager *infrastructure.BotManager, bots *repository.BotRepository, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{engine: engine, manager: manager, bots: bots, log: log}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.Engine) {
	r.POST("/webhook/telegram/:botID", h.Receive)
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	botID, err := strconv.Atoi(c.Param("botID"))
	if err != nil || botID <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown bot"})
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update payload"})
		return
	}

	bot, err := h.bots.Resolve(c.Request.Context(), botID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown bot"})
		return
	}
	sender, err := h.manager.SenderFor(bot)
	if err != nil {
		h.log.Error().Err(err).Int("bot_id", botID).Msg("webhook: bot connect failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Bot unavailable"})
		return
	}

	ev, ok := infrastructure.DecodeUpdate(botID, update)
	if !ok {
		c.Status(http.StatusOK)
		return
	}

	// Ack fast and process off the request goroutine. Telegram only needs
	// the 200; the turn itself can take seconds on a slow chat.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := h.engine.HandleEvent(ctx, sender, ev); err != nil && !errors.Is(err, entities.ErrDuplicateUpdate) {
			h.log.Error().Err(err).Int("bot_id", botID).Int64("update_id", ev.UpdateID).Msg("webhook: turn failed")
		}
	}()

	c.Status(http.StatusOK)
}
