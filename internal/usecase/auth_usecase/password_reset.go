package auth_usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"app/internal/mailer"
	"app/internal/repository"
	"app/internal/token"

	"go.uber.org/zap"
)

type PasswordResetUsecase struct {
	userRepo      repository.UserRepository
	hasher        PasswordHasher
	issuer        *token.Issuer
	manager       *token.RefreshManager
	mailer        mailer.Mailer
	clock         Clock
	tokenLifetime time.Duration
	logger        *zap.Logger
}

func NewPasswordResetUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	issuer *token.Issuer,
	manager *token.RefreshManager,
	m mailer.Mailer,
	clock Clock,
	tokenLifetime time.Duration,
	logger *zap.Logger,
) *PasswordResetUsecase {
	return &PasswordResetUsecase{
		userRepo:      userRepo,
		hasher:        hasher,
		issuer:        issuer,
		manager:       manager,
		mailer:        m,
		clock:         clock,
		tokenLifetime: tokenLifetime,
		logger:        logger,
	}
}

// リセットメールの送信。アカウントの存在を漏らさないため常に成功扱い。
func (u *PasswordResetUsecase) Forgot(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}

	resetToken, err := u.issuer.IssueScoped(user.ID, PurposeResetPassword, u.tokenLifetime)
	if err != nil {
		return err
	}
	if err := u.mailer.SendPasswordResetEmail(ctx, user.Email, resetToken); err != nil {
		u.logger.Error("failed to send password reset email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

// tokenを検証してパスワードを更新し、全セッションをrevokeする。
func (u *PasswordResetUsecase) Reset(ctx context.Context, resetToken, newPassword string) error {
	userID, err := u.issuer.VerifyScoped(resetToken, PurposeResetPassword)
	if err != nil {
		return ErrResetTokenInvalid
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hashed, err := u.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	user.HashedPassword = hashed
	user.UpdatedAt = u.clock.Now()
	if err := u.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if _, err := u.manager.RevokeAll(ctx, user.ID); err != nil {
		return err
	}

	return nil
}
