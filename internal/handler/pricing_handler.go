package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ticket-pricing-service/internal/service"
	apperrors "ticket-pricing-service/pkg/app_errors"
	"ticket-pricing-service/pkg/logger"
)

type PricingHandler struct {
	service service.PricingService
}

func NewPricingHandler(service service.PricingService) *PricingHandler {
	return &PricingHandler{service: service}
}

func (h *PricingHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events/:uuid/price", h.CurrentPrice)
	}
}

// CurrentPrice returns the live quote with its per-signal breakdown.
func (h *PricingHandler) CurrentPrice(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid")
	if !ok {
		return
	}

	quote, err := h.service.CurrentPrice(c, eventID)
	if err != nil {
		h.handleError(c, err, "CurrentPrice")
		return
	}

	c.JSON(http.StatusOK, quote)
}

func (h *PricingHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrEventClosed):
		log.Warn("Event closed")
		c.JSON(http.StatusConflict, gin.H{"error": "Event is not open for booking"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
