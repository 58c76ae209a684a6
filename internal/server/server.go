package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/DevMad123/enma-commerce-core/internal/database"
	"github.com/DevMad123/enma-commerce-core/internal/metrics"
	"github.com/DevMad123/enma-commerce-core/internal/service"
)

type Server struct {
	health   database.Service
	checkout service.CheckoutOrchestrator
	orders   service.OrderLifecycle
	payments service.PaymentLedger
	metrics  *metrics.ServerMetrics
	engine   *gin.Engine
}

// New wires the HTTP API. metrics may be nil (tests); the /metrics endpoint
// and the observation middleware are skipped then.
func New(
	health database.Service,
	checkout service.CheckoutOrchestrator,
	orders service.OrderLifecycle,
	payments service.PaymentLedger,
	m *metrics.ServerMetrics,
) *Server {
	s := &Server{
		health:   health,
		checkout: checkout,
		orders:   orders,
		payments: payments,
		metrics:  m,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(s.observe())

	r.GET("/health", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := r.Group("/api")
	api.POST("/checkout", s.handleCheckout)
	api.POST("/orders", s.handleCreateOrder)
	api.GET("/orders/:id", s.handleGetOrder)
	api.PATCH("/orders/:id", s.handleUpdateOrder)
	api.POST("/orders/:id/status", s.handleUpdateStatus)
	api.POST("/orders/:id/cancel", s.handleCancelOrder)
	api.POST("/orders/:id/payments", s.handleRecordPayment)
	api.GET("/orders/:id/payments", s.handleListPayments)
	api.GET("/statistics", s.handleStatistics)
	api.POST("/payments/:id/success", s.handleMarkSuccess)
	api.POST("/payments/:id/fail", s.handleMarkFailed)
	api.POST("/payments/:id/refund", s.handleRefund)
	api.POST("/payments/:id/cancel", s.handleCancelPayment)

	return r
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		slog.Info("request",
			"method", c.Request.Method, "path", c.FullPath(),
			"status", status, "duration_ms", time.Since(start).Milliseconds())

		if s.metrics != nil {
			handler := c.FullPath()
			if handler == "" {
				handler = "unmatched"
			}
			s.metrics.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
			s.metrics.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.health.Health()
	code := http.StatusOK
	if stats["status"] != "up" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, stats)
}
