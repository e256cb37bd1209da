package routes

import (
	"net/http"

	"learningly/config"
	adminapi "learningly/internal/api/admin"
	authapi "learningly/internal/api/auth"
	billingapi "learningly/internal/api/billing"
	plansapi "learningly/internal/api/plans"
	stripewebhooks "learningly/internal/api/stripewebhook"
	usageapi "learningly/internal/api/usage"
	"learningly/internal/app/http/middleware"
	"learningly/internal/infra/metrics"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Stripe signs the raw body, so the webhook skips sanitizing.
	r.POST("/webhook", stripewebhooks.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/plans", plansapi.ListPlans)

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.POST("/billing/quote", billingapi.Quote)

	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeAndCleanInputMiddleware())
	auth.POST("/change-password", authapi.ChangePassword)

	auth.POST("/billing/payment-intent", billingapi.CreatePaymentIntent)
	auth.POST("/billing/confirm", billingapi.ConfirmPayment)
	auth.GET("/billing/purchases", billingapi.GetPurchaseHistory)

	auth.GET("/usage", usageapi.GetUsage)
	auth.GET("/usage/stream", usageapi.StreamUsage)

	limited := auth.Group("/usage/:feature")
	limited.Use(middleware.RateLimit(config.RATE_LIMIT_PER_MINUTE))
	limited.POST("/consume", usageapi.Consume)
	limited.POST("/decrement", usageapi.Decrement)
	limited.POST("/refund", usageapi.Refund)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/users", adminapi.ListAllUsers)
	admin.GET("/purchases", adminapi.ListAllPurchases)
	admin.GET("/user/:id", adminapi.GetUserDetails)
	admin.GET("/stats", adminapi.GetAdminStats)
	admin.POST("/usage/reset", adminapi.TriggerUsageReset)
}
