package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticket-pricing-service/internal/handler"
	"ticket-pricing-service/internal/pricing"
	apperrors "ticket-pricing-service/pkg/app_errors"
	mocks "ticket-pricing-service/internal/mocks/services"
)

func setupPricingTestRouter(mockService *mocks.PricingServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.NewPricingHandler(mockService).RegisterRoutes(router)
	return router
}

func TestPricingHandler_CurrentPrice(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := mocks.NewPricingServiceMock()
		router := setupPricingTestRouter(mockService)

		eventID := uuid.New()
		mockService.On("CurrentPrice", mock.Anything, eventID).Return(&pricing.Quote{
			BasePrice:           100,
			TimeAdjustment:      0.2,
			DemandAdjustment:    0,
			InventoryAdjustment: 0.25,
			TotalAdjustment:     0.15,
			RawPrice:            115,
			FinalPrice:          115,
			DemandCount:         0,
			Remaining:           2,
			ComputedAt:          time.Now().UTC(),
		}, nil).Once()

		req := httptest.NewRequest("GET", "/api/v1/events/"+eventID.String()+"/price", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var quote pricing.Quote
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quote))
		assert.InDelta(t, 115.00, quote.FinalPrice, 1e-9)
		assert.InDelta(t, 0.2, quote.TimeAdjustment, 1e-9)
		assert.Equal(t, 2, quote.Remaining)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := mocks.NewPricingServiceMock()
		router := setupPricingTestRouter(mockService)

		req := httptest.NewRequest("GET", "/api/v1/events/not-a-uuid/price", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "CurrentPrice")
	})

	t.Run("Failed - ErrEventNotFound", func(t *testing.T) {
		mockService := mocks.NewPricingServiceMock()
		router := setupPricingTestRouter(mockService)

		eventID := uuid.New()
		mockService.On("CurrentPrice", mock.Anything, eventID).
			Return(nil, apperrors.ErrEventNotFound).Once()

		req := httptest.NewRequest("GET", "/api/v1/events/"+eventID.String()+"/price", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failed - ErrEventClosed", func(t *testing.T) {
		mockService := mocks.NewPricingServiceMock()
		router := setupPricingTestRouter(mockService)

		eventID := uuid.New()
		mockService.On("CurrentPrice", mock.Anything, eventID).
			Return(nil, apperrors.ErrEventClosed).Once()

		req := httptest.NewRequest("GET", "/api/v1/events/"+eventID.String()+"/price", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "not open for booking")
		mockService.AssertExpectations(t)
	})

	t.Run("Failed - ErrInternalServerError", func(t *testing.T) {
		mockService := mocks.NewPricingServiceMock()
		router := setupPricingTestRouter(mockService)

		eventID := uuid.New()
		mockService.On("CurrentPrice", mock.Anything, eventID).
			Return(nil, errors.New("connection refused")).Once()

		req := httptest.NewRequest("GET", "/api/v1/events/"+eventID.String()+"/price", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		mockService.AssertExpectations(t)
	})
}
