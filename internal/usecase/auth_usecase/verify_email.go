package auth_usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/mailer"
	"app/internal/repository"
	"app/internal/token"

	"go.uber.org/zap"
)

type VerifyEmailUsecase struct {
	userRepo      repository.UserRepository
	userDataRepo  repository.UserDataRepository
	issuer        *token.Issuer
	mailer        mailer.Mailer
	clock         Clock
	tokenLifetime time.Duration
	logger        *zap.Logger
}

func NewVerifyEmailUsecase(
	userRepo repository.UserRepository,
	userDataRepo repository.UserDataRepository,
	issuer *token.Issuer,
	m mailer.Mailer,
	clock Clock,
	tokenLifetime time.Duration,
	logger *zap.Logger,
) *VerifyEmailUsecase {
	return &VerifyEmailUsecase{
		userRepo:      userRepo,
		userDataRepo:  userDataRepo,
		issuer:        issuer,
		mailer:        m,
		clock:         clock,
		tokenLifetime: tokenLifetime,
		logger:        logger,
	}
}

// 確認メールの再送。アカウントの存在を漏らさないため常に成功扱いで返す。
func (u *VerifyEmailUsecase) RequestVerify(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.IsVerified {
		return nil
	}

	verifyToken, err := u.issuer.IssueScoped(user.ID, PurposeVerifyEmail, u.tokenLifetime)
	if err != nil {
		return err
	}
	if err := u.mailer.SendVerificationEmail(ctx, user.Email, verifyToken); err != nil {
		u.logger.Error("failed to send verification email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

type VerifyEmailOutput struct {
	UserID     string
	Email      string
	IsActive   bool
	IsVerified bool
}

// tokenを検証してアカウントを有効化し、user dataの行を用意する。
func (u *VerifyEmailUsecase) Verify(ctx context.Context, verifyToken string) (*VerifyEmailOutput, error) {
	userID, err := u.issuer.VerifyScoped(verifyToken, PurposeVerifyEmail)
	if err != nil {
		return nil, ErrVerifyTokenInvalid
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrVerifyTokenInvalid
		}
		return nil, err
	}

	if !user.IsVerified {
		now := u.clock.Now()
		user.IsVerified = true
		user.IsActive = true
		user.UpdatedAt = now
		if err := u.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}

		//初回検証時にuser dataの行を作る
		if _, err := u.userDataRepo.FindByUserID(ctx, user.ID); errors.Is(err, repository.ErrUserDataNotFound) {
			data := &model.UserData{
				UserID:    user.ID,
				TextValue: "",
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := u.userDataRepo.Create(ctx, data); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
	}

	return &VerifyEmailOutput{
		UserID:     user.ID.String(),
		Email:      user.Email,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
	}, nil
}
