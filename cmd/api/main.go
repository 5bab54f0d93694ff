package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/mailer"
	"app/internal/middleware"
	"app/internal/oauth"
	"app/internal/server"
	"app/internal/token"
	"app/internal/usecase/admin_usecase"
	"app/internal/usecase/auth_usecase"
	"app/internal/usecase/userdata_usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	//.envは無くてもよい
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.GoEnv)
	defer logger.Sync()

	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.UserData{},
		&model.AccessToken{},
		&model.RefreshToken{},
	); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	//repository
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	userDataRepo := infraRepo.NewUserDataRepository(gormDB)
	refreshTokenRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	accessTokenRepo := infraRepo.NewAccessTokenRepository(gormDB)

	//token
	clock := auth_usecase.NewRealClock()
	issuer := token.NewIssuer(cfg.SecretKey, cfg.AccessTokenDuration(), token.RealClock())
	manager := token.NewRefreshManager(
		refreshTokenRepo,
		token.RealClock(),
		cfg.RefreshCookieName,
		cfg.RefreshCookieSecure,
		token.ParseSameSite(cfg.RefreshCookieSameSite),
	)

	//mailer
	var m mailer.Mailer
	if cfg.SMTPUser != "" {
		m = mailer.NewSMTPMailer(
			cfg.SMTPHost, cfg.SMTPPort,
			cfg.SMTPUser, cfg.SMTPPassword,
			cfg.SMTPFrom, cfg.SMTPFromName,
			cfg.SMTPTLS, cfg.FrontendURL, logger,
		)
	} else {
		m = mailer.NewLogMailer(logger)
	}

	//oauth
	var verifier oauth.TokenVerifier = oauth.DisabledVerifier{}
	if cfg.FirebaseEnabled {
		v, err := oauth.NewStaticKeyVerifier(os.Getenv("FIREBASE_SHARED_SECRET"), "firebase")
		if err != nil {
			logger.Warn("oauth verifier not initialized", zap.Error(err))
		} else {
			verifier = v
		}
	}

	//usecase
	hasher := auth_usecase.NewBcryptHasher()
	idGen := auth_usecase.NewUUIDGenerator()

	persister := auth_usecase.NewAccessTokenPersister(
		accessTokenRepo, cfg.PersistAccessTokens, cfg.AccessTokenDuration(), clock)

	registerUC := auth_usecase.NewRegisterUserUsecase(
		userRepo, hasher, idGen, clock, issuer, m, cfg.VerificationTokenDuration(), logger)
	loginUC := auth_usecase.NewLoginUsecase(userRepo, hasher, issuer, persister)
	refreshUC := auth_usecase.NewRefreshUsecase(userRepo, manager, issuer)
	logoutUC := auth_usecase.NewLogoutUsecase(manager, accessTokenRepo, cfg.PersistAccessTokens)
	changePwUC := auth_usecase.NewChangePasswordUsecase(userRepo, hasher, manager, clock)
	verifyUC := auth_usecase.NewVerifyEmailUsecase(
		userRepo, userDataRepo, issuer, m, clock, cfg.VerificationTokenDuration(), logger)
	passwordResetUC := auth_usecase.NewPasswordResetUsecase(
		userRepo, hasher, issuer, manager, m, clock, cfg.ResetPasswordTokenDuration(), logger)
	firebaseUC := auth_usecase.NewFirebaseLoginUsecase(
		userRepo, userDataRepo, verifier, hasher, idGen, clock, issuer, manager,
		persister, cfg.RefreshTokenDuration(), logger)
	userDataUC := userdata_usecase.NewUsecase(userDataRepo, userdata_usecase.NewRealClock())
	adminUC := admin_usecase.NewUsecase(
		userRepo, manager, accessTokenRepo, cfg.PersistAccessTokens, admin_usecase.NewRealClock(), logger)

	//handler
	authH := handler.NewAuthHandler(
		registerUC, loginUC, refreshUC, logoutUC, changePwUC,
		verifyUC, passwordResetUC, firebaseUC, manager, cfg.FirebaseEnabled, logger)
	userH := handler.NewUserHandler(userRepo, hasher, clock, logger)
	userDataH := handler.NewUserDataHandler(userDataUC, logger)
	adminH := handler.NewAdminHandler(adminUC, logger)

	limiter, err := buildRateLimiter(cfg)
	if err != nil {
		logger.Fatal("invalid rate limit config", zap.Error(err))
	}

	srv := server.New(server.Deps{
		Config:      cfg,
		Logger:      logger,
		Issuer:      issuer,
		Manager:     manager,
		UserRepo:    userRepo,
		RateLimiter: limiter,
	}, server.Routes(authH, userH, userDataH, adminH))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Info("server stopped", zap.Error(err))
		}
	}()

	//SIGINT/SIGTERMでgraceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func buildRateLimiter(cfg config.Config) (*middleware.RateLimiter, error) {
	defaultRule, err := middleware.ParseRateRule(cfg.RateLimitDefault)
	if err != nil {
		return nil, err
	}
	loginRule, err := middleware.ParseRateRule(cfg.RateLimitLogin)
	if err != nil {
		return nil, err
	}
	registerRule, err := middleware.ParseRateRule(cfg.RateLimitRegister)
	if err != nil {
		return nil, err
	}
	forgotRule, err := middleware.ParseRateRule(cfg.RateLimitForgotPassword)
	if err != nil {
		return nil, err
	}

	return middleware.NewRateLimiter(defaultRule, map[string]middleware.RateRule{
		"/api/auth/login":           loginRule,
		"/api/auth/firebase":        loginRule,
		"/api/auth/register":        registerRule,
		"/api/auth/forgot-password": forgotRule,
	}), nil
}
