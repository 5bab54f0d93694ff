package main

import (
	"context"
	"time"

	"app/internal/config"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// 期限切れトークンの掃除。cronから叩く想定。
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	gormDB, err := db.Connect(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	refreshTokenRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	accessTokenRepo := infraRepo.NewAccessTokenRepository(gormDB)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	refreshCount, err := refreshTokenRepo.DeleteExpired(ctx, now)
	if err != nil {
		logger.Fatal("failed to delete expired refresh tokens", zap.Error(err))
	}

	accessCount, err := accessTokenRepo.DeleteExpired(ctx, now)
	if err != nil {
		logger.Fatal("failed to delete expired access tokens", zap.Error(err))
	}

	logger.Info("cleanup finished",
		zap.Int64("refresh_tokens_deleted", refreshCount),
		zap.Int64("access_tokens_deleted", accessCount),
	)
}
