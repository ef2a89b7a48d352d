package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ticket-pricing-service/internal/model"
	"ticket-pricing-service/internal/service"
	apperrors "ticket-pricing-service/pkg/app_errors"
	"ticket-pricing-service/pkg/logger"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.List)
		router.GET("events/:uuid", h.GetByEventID)
		router.POST("events", h.Create)
		router.PATCH("events/:uuid/active", h.SetActive)
		router.PUT("events/:uuid/rules", h.UpdateRules)
		router.GET("events/:uuid/stats", h.Stats)
		router.GET("events/:uuid/price-history", h.PriceHistory)
	}
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.List(c)
	if err != nil {
		h.handleError(c, err, "List")
		return
	}

	responses := make([]*model.EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, event.ToResponse())
	}
	c.JSON(http.StatusOK, responses)
}

func (h *EventHandler) GetByEventID(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid")
	if !ok {
		return
	}

	event, err := h.service.GetByEventID(c, eventID)
	if err != nil {
		h.handleError(c, err, "GetByEventID")
		return
	}
	c.JSON(http.StatusOK, event.ToResponse())
}

func (h *EventHandler) Create(c *gin.Context) {
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	created, err := h.service.Create(c, req)
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	c.JSON(http.StatusCreated, created.ToResponse())
}

func (h *EventHandler) SetActive(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid")
	if !ok {
		return
	}

	var req SetActiveRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	if err := h.service.SetActive(c, eventID, *req.Active); err != nil {
		h.handleError(c, err, "SetActive")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EventHandler) UpdateRules(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid")
	if !ok {
		return
	}

	var rules model.PricingRules
	if err := BindJson(c, &rules); err != nil {
		return
	}

	updated, err := h.service.UpdateRules(c, eventID, rules)
	if err != nil {
		h.handleError(c, err, "UpdateRules")
		return
	}
	c.JSON(http.StatusOK, updated.ToResponse())
}

func (h *EventHandler) Stats(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid")
	if !ok {
		return
	}

	stats, err := h.service.Stats(c, eventID)
	if err != nil {
		h.handleError(c, err, "Stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *EventHandler) PriceHistory(c *gin.Context) {
	eventID, ok := parseUUIDParam(c, "uuid")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	ticks, err := h.service.PriceHistory(c, eventID, limit)
	if err != nil {
		h.handleError(c, err, "PriceHistory")
		return
	}
	c.JSON(http.StatusOK, ticks)
}

func (h *EventHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrValidation):
		log.Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
