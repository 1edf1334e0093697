package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nitesh/bill_monitor/internal/service"
	"github.com/nitesh/bill_monitor/pkg/models"
)

// BillService is the part of service.Service used by the handlers.
type BillService interface {
	QueryBills(ctx context.Context, startDate, endDate string) ([]models.ClassifiedBill, error)
	RunDigest(ctx context.Context) (int, error)
	PreviewDigest(ctx context.Context, limit int) (int, error)
	SendTestEmail(ctx context.Context) error
}

type Handler struct {
	svc        BillService
	cronSecret string
	testSecret string
	logger     *zap.Logger
}

func NewHandler(svc BillService, cronSecret, testSecret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, cronSecret: cronSecret, testSecret: testSecret, logger: logger}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/bills", h.Bills)
		api.GET("/cron/daily-digest", h.RequireBearer(), h.DailyDigest)

		test := api.Group("/test", h.RequireTestSecret())
		test.GET("/cron-digest", h.PreviewDigest)
		test.GET("/send-email", h.SendTestEmail)
	}
}

type billsQuery struct {
	StartDate string `form:"startDate" binding:"required"`
	EndDate   string `form:"endDate" binding:"required"`
}

// Bills: GET /api/bills?startDate=2024-03-01&endDate=2024-03-07
func (h *Handler) Bills(c *gin.Context) {
	var q billsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Необхідно вказати початкову та кінцеву дати"})
		return
	}

	bills, err := h.svc.QueryBills(c.Request.Context(), q.StartDate, q.EndDate)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
			return
		}
		h.logger.Error("bills query failed",
			zap.String("start_date", q.StartDate),
			zap.String("end_date", q.EndDate),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bills)
}

// DailyDigest: GET /api/cron/daily-digest (Authorization: Bearer <CRON_SECRET>)
func (h *Handler) DailyDigest(c *gin.Context) {
	found, err := h.svc.RunDigest(c.Request.Context())
	if err != nil {
		h.logger.Error("cron job failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "foundBills": found})
}

// PreviewDigest: GET /api/test/cron-digest?secret=...&limit=100
func (h *Handler) PreviewDigest(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = l
	}

	found, err := h.svc.PreviewDigest(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("cron job test failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Помилка під час виконання тесту. Дивіться логи.",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Тест завершено. Перевірте консоль та вашу поштову скриньку.",
		"foundBills": found,
	})
}

// SendTestEmail: GET /api/test/send-email?secret=...
func (h *Handler) SendTestEmail(c *gin.Context) {
	if err := h.svc.SendTestEmail(c.Request.Context()); err != nil {
		h.logger.Error("email test failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Не вдалося надіслати тестовий лист. Перевірте логи сервера.",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Тестовий лист успішно надіслано!"})
}

// RequireBearer rejects requests whose Authorization header does not carry
// the cron secret. An unset secret rejects everything.
func (h *Handler) RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if h.cronSecret == "" || !ok || !secretEqual(token, h.cronSecret) {
			h.logger.Warn("unauthorized cron call", zap.String("path", c.FullPath()), zap.String("client_ip", c.ClientIP()))
			c.String(http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireTestSecret guards the diagnostic routes with ?secret=.
func (h *Handler) RequireTestSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.testSecret == "" || !secretEqual(c.Query("secret"), h.testSecret) {
			h.logger.Warn("unauthorized test call", zap.String("path", c.FullPath()), zap.String("client_ip", c.ClientIP()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
