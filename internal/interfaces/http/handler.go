package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/rs/zerolog"

	"dealerhub/internal/entities"
	"dealerhub/internal/infrastructure"
	"dealerhub/internal/repository"
	"dealerhub/internal/usecases"
)

// CarLister is the inventory slice the dashboard listing needs.
type CarLister interface {
	GetByStatus(ctx context.Context, status string) ([]entities.Car, error)
}

type Handler struct {
	requests  *repository.RequestRepository
	leads     *repository.LeadRepository
	scenarios *repository.ScenarioRepository
	cars      CarLister
	waManager *infrastructure.WhatsAppManager
}

func NewHandler(requests *repository.RequestRepository, leads *repository.LeadRepository, scenarios *repository.ScenarioRepository, cars CarLister, waManager *infrastructure.WhatsAppManager) *Handler {
	return &Handler{
		requests:  requests,
		leads:     leads,
		scenarios: scenarios,
		cars:      cars,
		waManager: waManager,
	}
}

// Deps bundles everything SetupRoutes wires into the router.
type Deps struct {
	Engine     *usecases.Engine
	Auth       *usecases.AuthUsecase
	Posts      *usecases.ChannelPostService
	BotManager *infrastructure.BotManager
	WAManager  *infrastructure.WhatsAppManager
	Requests   *repository.RequestRepository
	Leads      *repository.LeadRepository
	Scenarios  *repository.ScenarioRepository
	Cars       *repository.CarRepository
	Bots       *repository.BotRepository
	Log        zerolog.Logger
}

func SetupRoutes(r *gin.Engine, deps Deps, middleware *Middleware) {
	h := NewHandler(deps.Requests, deps.Leads, deps.Scenarios, deps.Cars, deps.WAManager)
	channelHandler := NewChannelHandler(deps.Posts, deps.Bots)
	telegramHandler := NewTelegramHandler(deps.BotManager, deps.Bots)
	webhookHandler := NewWebhookHandler(deps.Engine, deps.BotManager, deps.Bots, deps.Log)

	// Apply Security Middleware
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(middleware.CORSMiddleware())

	// Public Routes
	webhookHandler.RegisterRoutes(r)
	r.GET("/requests/:id/qr", channelHandler.DeepLinkQR)

	// Public Auth Routes
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", func(c *gin.Context) {
			var loginReq struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&loginReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			token, err := deps.Auth.Login(loginReq.Username, loginReq.Password)
			if errors.Is(err, usecases.ErrAccountDisabled) {
				c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
				return
			}
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})

		authGroup.POST("/register", func(c *gin.Context) {
			var regReq struct {
				Username  string `json:"username"`
				Password  string `json:"password"`
				CompanyID int    `json:"company_id"`
			}
			if err := c.ShouldBindJSON(&regReq); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
				return
			}
			// Validate inputs
			if !ValidSlug(regReq.Username) || len(regReq.Password) < 6 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 6 chars)"})
				return
			}
			if err := deps.Auth.Register(regReq.Username, regReq.Password, regReq.CompanyID); err != nil {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusCreated, gin.H{"status": "registered"})
		})
	}

	// Protected Routes
	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		// Request Routes
		api.GET("/requests", h.ListRequests)
		api.POST("/requests", h.CreateRequest)
		api.GET("/requests/:id", h.GetRequest)
		api.PUT("/requests/:id/status", h.UpdateRequestStatus)

		// Channel Post Routes
		channelHandler.RegisterRoutes(api)

		// Scenario Routes
		api.GET("/scenarios", h.ListScenarios)
		api.GET("/scenarios/:id", h.GetScenario)
		api.POST("/scenarios", h.SaveScenario)

		// Lead Routes
		api.GET("/leads", h.ListLeads)

		// Car Routes
		api.GET("/cars", h.ListCars)

	}

	// Admin-only Bot Management Routes
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.RequireRole("admin"))
	{
		telegramHandler.RegisterRoutes(admin)

		// WhatsApp Management Routes (per-bot sessions)
		admin.GET("/whatsapp/:botID/qr", h.GetWhatsAppQR)
		admin.GET("/whatsapp/:botID/status", h.GetWhatsAppStatus)
		admin.POST("/whatsapp/:botID/connect", h.ConnectWhatsApp)
		admin.POST("/whatsapp/:botID/disconnect", h.DisconnectWhatsApp)
	}
}

// ========================================
// Request Handlers
// ========================================

func (h *Handler) ListRequests(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	reqs, err := h.requests.List(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

func (h *Handler) GetRequest(c *gin.Context) {
	id, ok := requestParam(c)
	if !ok {
		return
	}
	req, err := h.requests.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load request"})
		return
	}
	if req == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *Handler) CreateRequest(c *gin.Context) {
	var req entities.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	req.Title = SanitizeString(TruncateString(req.Title, 200))
	if req.Status == "" {
		req.Status = "open"
	}
	if err := h.requests.Create(c.Request.Context(), &req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create request"})
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *Handler) UpdateRequestStatus(c *gin.Context) {
	id, ok := requestParam(c)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.requests.SetStatus(c.Request.Context(), id, body.Status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": body.Status})
}

// ========================================
// Scenario Handlers
// ========================================

func (h *Handler) ListScenarios(c *gin.Context) {
	scenarios, err := h.scenarios.GetActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scenarios"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": scenarios})
}

func (h *Handler) GetScenario(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scenario id"})
		return
	}
	sc, err := h.scenarios.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scenario"})
		return
	}
	if sc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scenario not found"})
		return
	}
	c.JSON(http.StatusOK, sc)
}

// SaveScenario creates or updates a scenario. The graph is validated before
// anything touches the database, so a broken editor export never goes live.
func (h *Handler) SaveScenario(c *gin.Context) {
	var sc entities.Scenario
	if err := c.ShouldBindJSON(&sc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scenario payload"})
		return
	}
	if err := h.scenarios.Upsert(c.Request.Context(), &sc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": sc.ID, "status": "saved"})
}

// ========================================
// Lead / Car Handlers
// ========================================

func (h *Handler) ListLeads(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	leads, err := h.leads.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load leads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

func (h *Handler) ListCars(c *gin.Context) {
	status := c.DefaultQuery("status", "in_stock")
	cars, err := h.cars.GetByStatus(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cars"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cars": cars})
}

// ========================================
// Per-Bot WhatsApp Handlers
// ========================================

// ConnectWhatsApp creates and connects the WhatsApp client for a bot
func (h *Handler) ConnectWhatsApp(c *gin.Context) {
	botID, ok := botParam(c)
	if !ok {
		return
	}

	if h.waManager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "WhatsApp not configured"})
		return
	}

	client, err := h.waManager.ConnectClient(botID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "connecting",
		"connected": client.IsLoggedIn(),
	})
}

// GetWhatsAppQR returns QR code PNG for a bot's WhatsApp pairing
func (h *Handler) GetWhatsAppQR(c *gin.Context) {
	botID, ok := botParam(c)
	if !ok {
		return
	}

	if h.waManager == nil {
		c.String(http.StatusServiceUnavailable, "WhatsApp not configured")
		return
	}

	client, err := h.waManager.GetOrCreateClient(botID)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to create client: "+err.Error())
		return
	}

	if !client.IsConnected() {
		if err := client.Connect(); err != nil {
			c.String(http.StatusInternalServerError, "Failed to connect: "+err.Error())
			return
		}
	}

	qrString := client.GetQR()
	if qrString == "" {
		if client.IsLoggedIn() {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(qrString, qrcode.Medium, 256)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// GetWhatsAppStatus returns WhatsApp connection status for a bot
func (h *Handler) GetWhatsAppStatus(c *gin.Context) {
	botID, ok := botParam(c)
	if !ok {
		return
	}

	if h.waManager == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": "WhatsApp not configured"})
		return
	}

	client := h.waManager.GetClient(botID)
	if client == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "initialized": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":   client.IsLoggedIn(),
		"initialized": true,
		"hasQR":       client.GetQR() != "",
	})
}

// DisconnectWhatsApp drops a bot's WhatsApp session
func (h *Handler) DisconnectWhatsApp(c *gin.Context) {
	botID, ok := botParam(c)
	if !ok {
		return
	}

	if h.waManager != nil {
		h.waManager.DisconnectClient(botID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}
