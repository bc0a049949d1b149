package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sgml/firebase-steam-login/internal/config"
	"github.com/sgml/firebase-steam-login/internal/handler"
	"github.com/sgml/firebase-steam-login/internal/provider"
	"github.com/sgml/firebase-steam-login/internal/repository"
	"github.com/sgml/firebase-steam-login/internal/service"
	"github.com/sgml/firebase-steam-login/internal/utils"
	"github.com/sgml/firebase-steam-login/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	signer, err := utils.NewSigner(
		cfg.Signing.PrivateKeyFile,
		cfg.Signing.AssertionPublicKeyFile,
		cfg.Signing.Issuer,
		cfg.Signing.CustomTokenTTL.Duration,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing keys: %w", err)
	}

	publicURL := strings.TrimRight(cfg.Server.PublicURL, "/")

	steam := provider.NewSteam(cfg.Steam)
	discord := provider.NewDiscord(cfg.Discord, publicURL+"/api/v1/auth/discord/callback")
	refresher := provider.NewRefreshClient(cfg.Discord)

	states := service.NewStateStore(infra.Redis(), cfg.Session.StateTTL.Duration)
	reconciler := service.NewReconciler(repos.User, repos.Profile)
	linker := service.NewLinker(repos.User, repos.Profile, repos.ProviderToken, refresher)
	issuer := service.NewIssuer(signer, cfg.Redirects.Targets)

	healthChecker := NewHealthChecker(infra)

	authHandler := handler.NewAuthHandler(
		steam,
		discord,
		states,
		reconciler,
		linker,
		issuer,
		signer,
		cfg.Redirects.Targets,
		publicURL,
	)
	sessionHandler := handler.NewSessionHandler(issuer)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, authHandler, sessionHandler, signer, healthChecker, infra.Telemetry())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	authHandler *handler.AuthHandler,
	sessionHandler *handler.SessionHandler,
	verifier handler.AssertionVerifier,
	healthChecker *HealthChecker,
	telemetry *observability.Telemetry,
) {
	router.GET("/metrics", telemetry.GinHandler())
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.GET("/:provider/login", authHandler.Login)
			auth.GET("/:provider/callback", authHandler.Callback)
		}

		session := api.Group("/session")
		{
			session.POST("/extend", handler.AuthMiddleware(verifier), sessionHandler.Extend)
			session.GET("/publickey", sessionHandler.PublicKey)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
