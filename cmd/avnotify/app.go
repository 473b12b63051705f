package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"avnotify/internal/config"
	"avnotify/internal/constants"
	"avnotify/internal/dispatch"
	"avnotify/internal/logger"
	"avnotify/pkg/bootstrap"
	"avnotify/pkg/health"
	"avnotify/pkg/logging"
	"avnotify/pkg/metrics"
	"avnotify/pkg/middleware"
	"avnotify/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	service *dispatch.Service
	handler *dispatch.Handler
	router  *gin.Engine
	server  *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitTracing(constants.ServiceName); err != nil {
		return err
	}

	metrics.RegisterDispatchMetrics()

	svc, err := a.InitDispatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	a.service = svc
	a.handler = dispatch.NewHandler(svc, a.Logger)

	if a.Config.Broker.Kafka.Enabled() {
		metrics.RegisterBrokerMetrics()
		if err := a.InitConsumer(constants.ServiceName); err != nil {
			return fmt.Errorf("failed to initialize broker: %w", err)
		}
	} else {
		a.Logger.WarnwCtx(ctx, "No Kafka brokers configured, serving HTTP API only")
	}

	a.initHTTPServer()
	return nil
}

func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RecoveryMiddleware(a.Logger))

	healthRegistry := health.NewCheckerRegistry()
	if a.Config.Broker.Kafka.Enabled() {
		healthRegistry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}
	if a.Config.Slack.Enabled() {
		healthRegistry.RegisterOptional(health.NewWebhookChecker(a.Config.Slack.WebhookURL))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	dispatch.NewHTTPHandler(a.service, a.Logger).RegisterRoutes(router)

	a.router = router
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Run blocks until ctx is canceled or the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.Consumer != nil {
		inputTopic := a.Config.Broker.Kafka.InputTopic
		g.Go(func() error {
			consumeCtx := logging.WithServiceName(gCtx, constants.ServiceName)
			a.Logger.InfowCtx(consumeCtx, "Starting scan result consumer", "topic", inputTopic)
			return a.Consumer.Consume(gCtx, inputTopic, a.handler.HandleScanResult)
		})
	}

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(logging.WithServiceName(ctx, constants.ServiceName), "Shutting down avnotify")
	return a.Base.Shutdown(ctx, nil)
}
