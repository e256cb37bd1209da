package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learningly/config"
	"learningly/database"
	routes "learningly/internal/app/http"
	"learningly/internal/domain/usage"
	"learningly/internal/infra/logger"
	"learningly/internal/infra/metrics"
	"learningly/internal/infra/stripe"
	"learningly/internal/jobs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadEnv()
	logger.Init(config.APP_ENV, config.LOG_LEVEL)
	if config.APP_ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database.InitDB()
	stripe.Client = stripe.NewRetryingGateway(stripe.NewAPIGateway(config.STRIPE_SECRET_KEY), nil)

	resets := jobs.NewResetScheduler(database.DB, usage.ConfiguredSettings)
	if err := resets.Start(config.RESET_SCHEDULE); err != nil {
		logger.Log.WithError(err).Fatal("start usage reset scheduler")
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), metrics.Middleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + config.PORT,
		Handler: r,
	}

	go func() {
		logger.Log.WithField("port", config.PORT).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("http server shutdown")
	}
	resets.Stop(ctx)
}
