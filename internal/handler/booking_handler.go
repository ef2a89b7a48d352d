package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ticket-pricing-service/internal/model"
	"ticket-pricing-service/internal/service"
	apperrors "ticket-pricing-service/pkg/app_errors"
	"ticket-pricing-service/pkg/logger"
)

type BookingHandler struct {
	service service.BookingService
}

func NewBookingHandler(service service.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("reservations", h.Book)
		router.GET("reservations/:uuid", h.GetReservation)
		router.DELETE("reservations/:uuid", h.Cancel)
		router.GET("events/:uuid/reservations", h.ListByEvent)
		router.GET("customers/:email/reservations", h.ListByCustomer)
	}
}

func (h *BookingHandler) Book(c *gin.Context) {
	var req model.BookingRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	receipt, err := h.service.Book(c, req)
	if err != nil {
		h.handleBookingError(c, err, "Book")
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

func (h *BookingHandler) GetReservation(c *gin.Context) {
	reservationID, ok := parseUUIDParam(c, "uuid")
	if !ok {
		return
	}

	reservation, err := h.service.GetByReservationID(c, reservationID)
	if err != nil {
		h.handleBookingError(c, err, "GetReservation")
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// Cancel requires the booking customer's email as a query parameter; it is
// the ownership proof for the destroy.
func (h *BookingHandler) Cancel(c *gin.Context) {
	reservationID, ok := parseUUIDParam(c, "uuid")
	if !ok {
		return
	}

	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter is required"})
		return
	}

	receipt, err := h.service.Cancel(c, reservationID, email)
	if err != nil {
		h.handleBookingError(c, err, "Cancel")
		return
	}

	c.JSON(http.StatusOK, receipt)
}

func (h *BookingHandler) ListByEvent(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid")
	if !ok {
		return
	}

	reservations, err := h.service.ListByEvent(c, eventID)
	if err != nil {
		h.handleBookingError(c, err, "ListByEvent")
		return
	}

	c.JSON(http.StatusOK, reservations)
}

func (h *BookingHandler) ListByCustomer(c *gin.Context) {
	email := c.Param("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	reservations, err := h.service.ListByCustomer(c, email)
	if err != nil {
		h.handleBookingError(c, err, "ListByCustomer")
		return
	}

	c.JSON(http.StatusOK, reservations)
}

func (h *BookingHandler) handleBookingError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	var capErr *apperrors.CapacityError
	switch {
	case errors.As(err, &capErr):
		log.Warn("Insufficient capacity")
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Insufficient capacity",
			"requested": capErr.Requested,
			"remaining": capErr.Remaining,
		})
	case errors.Is(err, apperrors.ErrInsufficientCapacity):
		log.Warn("Insufficient capacity")
		c.JSON(http.StatusConflict, gin.H{"error": "Insufficient capacity"})
	case errors.Is(err, apperrors.ErrRateLimited):
		log.Warn("Rate limited")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many booking attempts, slow down"})
	case errors.Is(err, apperrors.ErrEventClosed):
		log.Warn("Event closed")
		c.JSON(http.StatusConflict, gin.H{"error": "Event is not open for booking"})
	case errors.Is(err, apperrors.ErrEventExpired):
		log.Warn("Event expired")
		c.JSON(http.StatusConflict, gin.H{"error": "Event has already started"})
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrReservationNotFound):
		log.Warn("Reservation not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
	case errors.Is(err, apperrors.ErrForbidden):
		log.Warn("Ownership check failed")
		c.JSON(http.StatusForbidden, gin.H{"error": "Reservation belongs to another customer"})
	case errors.Is(err, apperrors.ErrValidation):
		log.Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		log.Error("Storage unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable, try again shortly"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
