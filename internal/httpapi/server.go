// Package httpapi JSON API записи для внешних интеграций (сайт, CRM).
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	requestIDHeader = "X-Request-ID"
)

// Reservations то, что API нужно от сервиса записи
type Reservations interface {
	Services(ctx context.Context) ([]model.Service, error)
	AvailableTimes(ctx context.Context, service, date string) ([]string, error)
	Reserve(ctx context.Context, nb model.NewBooking) (*model.Outcome, error)
	Booking(ctx context.Context, id int64) (*model.Booking, error)
	Cancel(ctx context.Context, id int64) (*model.Booking, error)
	Resync(ctx context.Context, key model.SlotKey) (string, error)
}

type Config struct {
	Addr      string
	Tokens    []string
	JWTSecret string
}

type Server struct {
	reservations Reservations
	logger       *zap.Logger
	router       *gin.Engine
	srv          *http.Server
}

func NewServer(cfg Config, reservations Reservations, logger *zap.Logger) *Server {
	s := &Server{
		reservations: reservations,
		logger:       logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	api.Use(AuthMiddleware(cfg.Tokens, cfg.JWTSecret))
	{
		services := api.Group("/services")
		{
			services.GET("", s.handleListServices)
			services.GET("/:service/availability", s.handleAvailability)
		}

		bookings := api.Group("/bookings")
		{
			bookings.POST("", s.handleCreateBooking)
			bookings.GET("/:id", s.handleGetBooking)
			bookings.DELETE("/:id", s.handleCancelBooking)
		}

		api.POST("/slots/resync", s.handleResync)
	}

	s.router = router
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler возвращает роутер, используется в тестах
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает адрес до отмены ctx, затем корректно завершает активные запросы
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP API", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Stopping HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		s.logger.Debug("HTTP request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
