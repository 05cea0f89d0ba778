package api

import (
	"net/http"
	"strconv"
	"time"

	"library-rental/internal/models"
	"library-rental/internal/service"
	"library-rental/internal/store"
	"library-rental/internal/sweeper"
	"library-rental/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders  *service.OrderService
	catalog *service.BookCatalog
	store   *store.Store
	sweeper *sweeper.Sweeper
}

// NewHandler creates a new HTTP handler
func NewHandler(orders *service.OrderService, catalog *service.BookCatalog, store *store.Store, sweeper *sweeper.Sweeper) *Handler {
	return &Handler{
		orders:  orders,
		catalog: catalog,
		store:   store,
		sweeper: sweeper,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(h.identityMiddleware())
	{
		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PUT("/orders/:id/accept", h.acceptOrder)
		v1.PUT("/orders/:id/return", h.returnOrder)
		v1.PUT("/orders/:id/rate", h.rateOrder)

		v1.POST("/sweep", h.runSweep)

		v1.POST("/books", h.createBook)
		v1.GET("/books", h.listBooks)
		v1.GET("/books/:id", h.getBook)
		v1.PUT("/books/:id", h.updateBook)
		v1.DELETE("/books/:id", h.deleteBook)

		v1.POST("/users", h.createUser)
	}
}

// identityMiddleware resolves the caller from the X-User-ID header set by
// the auth gateway. Credential verification happens upstream; only the
// role/ownership context is established here.
func (h *Handler) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.GetHeader("X-User-ID")
		userID, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid X-User-ID header",
			})
			return
		}

		user, err := h.store.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to resolve caller",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Unknown user",
			})
			return
		}

		c.Set("caller", models.Caller{ID: user.ID, Role: user.Role})
		c.Next()
	}
}

func caller(c *gin.Context) models.Caller {
	return c.MustGet("caller").(models.Caller)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// CreateOrderRequest represents a request to book an order
type CreateOrderRequest struct {
	BookID int64 `json:"book_id" binding:"required"`
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orders.BookOrder(c.Request.Context(), caller(c), req.BookID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// listOrders handles order listing for staff
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), caller(c), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), caller(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// acceptOrder handles admin hand-off confirmation
func (h *Handler) acceptOrder(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.orders.AcceptOrder(c.Request.Context(), caller(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// returnOrder handles book return by the owning user
func (h *Handler) returnOrder(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.orders.ReturnOrder(c.Request.Context(), caller(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// RateOrderRequest represents a rating submission
type RateOrderRequest struct {
	Rating *int `json:"rating" binding:"required"`
}

// rateOrder handles rating a returned order
func (h *Handler) rateOrder(c *gin.Context) {
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	var req RateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orders.RateOrder(c.Request.Context(), caller(c), orderID, *req.Rating)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// runSweep triggers one sweep pass. Admin only.
func (h *Handler) runSweep(c *gin.Context) {
	if caller(c).Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can trigger sweeps"})
		return
	}

	report, err := h.sweeper.RunOnce(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Sweep failed",
			"details": err.Error(),
		})
		return
	}
	if report == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "A sweep is already running"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
