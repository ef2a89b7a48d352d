package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ticket-pricing-service/config"
	"ticket-pricing-service/internal/cache"
	"ticket-pricing-service/internal/database"
	"ticket-pricing-service/internal/handler"
	"ticket-pricing-service/internal/queue"
	"ticket-pricing-service/internal/ratelimit"
	"ticket-pricing-service/internal/repository"
	"ticket-pricing-service/internal/service"
	"ticket-pricing-service/internal/worker"
	"ticket-pricing-service/pkg/logger"
	"ticket-pricing-service/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.LoadConfig()
	defer logger.L.Sync()

	if err := run(cfg); err != nil {
		logger.L.Fatal("service exited", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// tracing stays off unless a collector endpoint is configured
	if cfg.Tracing.Endpoint != "" {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.L.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer pool.Close()

	if err := database.InitSchema(ctx, pool); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return fmt.Errorf("initializing redis: %w", err)
	}
	defer rdb.Close()

	eventRepo := repository.NewEventRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	historyRepo := repository.NewPriceHistoryRepository(pool)

	priceCache := cache.NewRedisPriceCache(rdb, cfg.Cache)
	limiter := ratelimit.NewRedisSlidingWindowLimiter(rdb, cfg.Limits)

	tickQueue, err := queue.NewRedisStreamTickQueue(rdb, "", nil)
	if err != nil {
		return fmt.Errorf("initializing tick queue: %w", err)
	}

	eventService := service.NewEventService(eventRepo, reservationRepo, historyRepo, priceCache)
	pricingService := service.NewPricingService(eventRepo, reservationRepo, priceCache, cfg.Pricing)
	bookingService := service.NewBookingService(
		eventRepo, reservationRepo, priceCache, limiter, tickQueue, cfg.Limits, cfg.Pricing)

	historyWorker := worker.NewPriceHistoryWorker(historyRepo, tickQueue)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.NewEventHandler(eventService).RegisterRoutes(router)
	handler.NewPricingHandler(pricingService).RegisterRoutes(router)
	handler.NewBookingHandler(bookingService).RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := historyWorker.Run(runCtx); err != nil {
			return fmt.Errorf("running price history worker: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.L.Info("http server listening", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()
		logger.L.Info("shutdown signal received, stopping server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.L.Info("server stopped")
	return nil
}
