package server

import (
	"context"
	"net/http"
	"time"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/token"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// Server はecho本体と設定を持つ。
type Server struct {
	echo   *echo.Echo
	cfg    config.Config
	logger *zap.Logger
}

// Deps は組み立てに必要な依存一式。
type Deps struct {
	Config      config.Config
	Logger      *zap.Logger
	Issuer      *token.Issuer
	Manager     *token.RefreshManager
	UserRepo    repository.UserRepository
	RateLimiter *middleware.RateLimiter
}

func New(deps Deps, routes func(e *echo.Echo, authGuard, adminGuard, verifiedGuard echo.MiddlewareFunc)) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	//外側から順に: Recover → CORS → アクセスログ → rate limit → CSRF → login augment
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     deps.Config.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, deps.Config.CSRFHeaderName},
		AllowCredentials: true,
	}))
	e.Use(middleware.RequestLog(deps.Logger))
	e.Use(deps.RateLimiter.Middleware())
	e.Use(middleware.CSRF(middleware.CSRFConfig{
		CookieName:   deps.Config.CSRFCookieName,
		HeaderName:   deps.Config.CSRFHeaderName,
		CookieSecure: deps.Config.CSRFCookieSecure,
		ExemptPaths:  deps.Config.CSRFExemptPaths,
	}))
	e.Use(middleware.LoginAugment(middleware.LoginAugmentConfig{
		Manager:            deps.Manager,
		RefreshLifetime:    deps.Config.RefreshTokenDuration(),
		RememberMeLifetime: deps.Config.RememberMeRefreshDuration(),
		Strict:             deps.Config.LoginAugmentStrict,
		Logger:             deps.Logger,
	}))

	authGuard := middleware.AuthJWT(deps.Issuer, deps.UserRepo)
	adminGuard := middleware.RequireSuperuser()
	verifiedGuard := middleware.RequireVerified()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	routes(e, authGuard, adminGuard, verifiedGuard)

	return &Server{echo: e, cfg: deps.Config, logger: deps.Logger}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("port", s.cfg.Port))
	return s.echo.Start(":" + s.cfg.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// テスト用にecho本体を公開する。
func (s *Server) Echo() *echo.Echo { return s.echo }
