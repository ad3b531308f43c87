package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"dealerhub/internal/entities"
	"dealerhub/internal/repository"
	"dealerhub/internal/usecases"
)

// ChannelHandler exposes the channel post lifecycle: publish, update in
// place, close. Failures in bot/channel resolution or permanent delivery
// come back as {ok:false, reason} without internal retry details.
type ChannelHandler struct {
	posts *usecases.ChannelPostService
	bots  *repository.BotRepository
}

func NewChannelHandler(posts *usecases.ChannelPostService, bots *repository.BotRepository) *ChannelHandler {
	return &ChannelHandler{posts: posts, bots: bots}
}

func (h *ChannelHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/requests/:id/publish-channel", h.Publish)
	api.PUT("/requests/:id/channel-post", h.Update)
	api.POST("/requests/:id/close-channel", h.Close)
}

func (h *ChannelHandler) Publish(c *gin.Context) {
	requestID, ok := requestParam(c)
	if !ok {
		return
	}

	var req struct {
		BotID     int    `json:"botId"`
		ChannelID string `json:"channelId"`
		Text      string `json:"text"`
		Template  string `json:"template"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "reason": "Invalid request"})
		return
	}
	if req.ChannelID != "" && !ValidChannelID(req.ChannelID) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "reason": "Invalid channel id"})
		return
	}

	post, err := h.posts.Publish(c.Request.Context(), requestID, usecases.PublishOptions{
		BotID:     req.BotID,
		ChannelID: req.ChannelID,
		Text:      SanitizeString(TruncateString(req.Text, MaxTextLength)),
		Template:  entities.PostTemplate(req.Template),
	})
	if err != nil {
		respondChannelError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "channelPost": post})
}

func (h *ChannelHandler) Update(c *gin.Context) {
	requestID, ok := requestParam(c)
	if !ok {
		return
	}

	var req struct {
		Text      string `json:"text"`
		ChannelID string `json:"channelId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "reason": "Invalid request"})
		return
	}

	post, err := h.posts.Update(c.Request.Context(), requestID, usecases.UpdateOptions{
		Text:      SanitizeString(TruncateString(req.Text, MaxTextLength)),
		ChannelID: req.ChannelID,
	})
	if err != nil {
		respondChannelError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "channelPost": post})
}

func (h *ChannelHandler) Close(c *gin.Context) {
	requestID, ok := requestParam(c)
	if !ok {
		return
	}

	post, err := h.posts.Close(c.Request.Context(), requestID)
	if err != nil {
		respondChannelError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "channelPost": post})
}

// DeepLinkQR renders a QR code PNG for the request's bot deep link, for
// print materials in the showroom.
func (h *ChannelHandler) DeepLinkQR(c *gin.Context) {
	requestID, ok := requestParam(c)
	if !ok {
		return
	}
	botID, _ := strconv.Atoi(c.Query("botId"))

	bot, err := h.bots.Resolve(c.Request.Context(), botID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "reason": "Bot not available"})
		return
	}
	if bot.Username == "" {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "reason": "Bot has no username"})
		return
	}

	url := "https://t.me/" + bot.Username + "?start=req_" + strconv.Itoa(requestID)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "reason": "QR generation failed"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func requestParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "reason": "Invalid request id"})
		return 0, false
	}
	return id, true
}

// respondChannelError maps the engine error taxonomy onto HTTP statuses:
// resolution errors are 4xx with nothing mutated, delivery failures carry a
// reason without transport stack traces.
func respondChannelError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entities.ErrBotUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "reason": "Bot not available or missing token"})
	case errors.Is(err, entities.ErrPostClosed):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "reason": "Channel post already closed"})
	case entities.IsPermanentDelivery(err):
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "reason": "Channel rejected the message"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "reason": "Delivery failed"})
	}
}
