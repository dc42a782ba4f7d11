package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shopauth/internal/handlers"
	"shopauth/internal/middleware"
	"shopauth/internal/services"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	tokens services.TokenService,
) *gin.Engine {
	r.GET("/healthz", healthHandler.Health)

	// ---- public
	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/verify-otp", authHandler.VerifyOTP)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/confirm-email", authHandler.ConfirmEmail)
	}

	// ---- protected
	protected := auth.Group("", middleware.AuthMiddleware(tokens))
	{
		protected.GET("/profile", authHandler.Profile)
		protected.POST("/logout", authHandler.Logout)
		protected.POST("/request-verification", authHandler.RequestVerification)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return r
}
