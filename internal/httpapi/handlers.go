package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Freeeeeet/slot_booking_bot/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createBookingRequest struct {
	Service string `json:"service" binding:"required"`
	Date    string `json:"date" binding:"required"`
	Time    string `json:"time" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
}

// GET /health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /api/services
func (s *Server) handleListServices(c *gin.Context) {
	services, err := s.reservations.Services(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// GET /api/services/:service/availability?date=ДД.ММ.ГГГГ
func (s *Server) handleAvailability(c *gin.Context) {
	service := c.Param("service")
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}

	times, err := s.reservations.AvailableTimes(c.Request.Context(), service, date)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if times == nil {
		times = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"service":         service,
		"date":            date,
		"available_times": times,
	})
}

// POST /api/bookings
// Заполненный слот отдаётся как 409 со свободными временами того же дня.
func (s *Server) handleCreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := s.reservations.Reserve(c.Request.Context(), model.NewBooking{
		Service: req.Service,
		Date:    req.Date,
		Time:    req.Time,
		Name:    req.Name,
		Phone:   req.Phone,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	if !outcome.Booked() {
		alternatives := outcome.Alternatives
		if alternatives == nil {
			alternatives = []string{}
		}
		c.JSON(http.StatusConflict, gin.H{
			"status":          outcome.Status,
			"error":           model.ErrSlotFull.Error(),
			"available_times": alternatives,
		})
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// GET /api/bookings/:id
func (s *Server) handleGetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	booking, err := s.reservations.Booking(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// DELETE /api/bookings/:id
func (s *Server) handleCancelBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	booking, err := s.reservations.Cancel(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// POST /api/slots/resync
func (s *Server) handleResync(c *gin.Context) {
	var key model.SlotKey
	if err := c.ShouldBindJSON(&key); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	eventID, err := s.reservations.Resync(c.Request.Context(), key)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": key, "event_id": eventID})
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return 0, false
	}
	return id, true
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("API request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownService),
		errors.Is(err, model.ErrInvalidSlot),
		errors.Is(err, model.ErrInvalidBooking):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrSlotFull):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
