package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "shopauth/docs"
	"shopauth/internal/config"
	"shopauth/internal/handlers"
	"shopauth/internal/logger"
	"shopauth/internal/middleware"
	"shopauth/internal/ratelimit"
	"shopauth/internal/repositories"
	"shopauth/internal/routes"
	"shopauth/internal/services"
)

type App struct {
	cfg     *config.Config
	log     *zap.Logger
	router  *gin.Engine
	closers []func()
}

// New wires stores, services and the router. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, clock clockwork.Clock) (*App, error) {
	a := &App{cfg: cfg, log: log}

	st, err := openStores(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.close)

	var revoked repositories.RevocationRepository
	if cfg.Auth.Revocation.Enabled {
		rdb, err := repositories.OpenRedis(ctx, cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		revoked = repositories.NewRedisRevocationRepository(rdb)
		log.Info("token revocation list enabled")
	}

	// === Services ===
	emailService, err := services.NewEmailService(cfg.Email, cfg.OTP.TTL, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	userService := services.NewUserService(st.users, cfg.Auth.BcryptCost, clock, log)
	otpService := services.NewOTPService(st.otps, cfg.OTP.TTL, clock, log)
	tokenService := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, clock, revoked)
	authService := services.NewAuthService(userService, otpService, tokenService, emailService, services.AuthOptions{
		ConcealUnknownEmail: cfg.Auth.ConcealUnknownEmail,
		SendLimit:           cfg.OTP.SendLimit,
		SendWindow:          cfg.OTP.SendWindow,
	}, clock, log)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(authService, log)
	healthHandler := handlers.NewHealthHandler(st.ping, clock)

	// === Gin ===
	if !cfg.Log.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.Server.ClientURL))
	router.Use(middleware.RateLimit(ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateWindow, clock)))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	a.router = routes.SetupRoutes(router, authHandler, healthHandler, tokenService)

	return a, nil
}

func (a *App) Router() http.Handler { return a.router }

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Serve listens until ctx is cancelled, then drains within server.shutdown_timeout.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler: a.router,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func Run() {
	cfg := config.LoadConfig()

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := New(ctx, cfg, log, clockwork.NewRealClock())
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		log.Error("server stopped", zap.Error(err))
	}
}
