package admin_usecase

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"
	"app/internal/token"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUserNotFound = errors.New("user not found")

// 時刻取得を差し替え可能にする
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewRealClock() Clock { return realClock{} }

type Usecase struct {
	userRepo        repository.UserRepository
	manager         *token.RefreshManager
	accessTokenRepo repository.AccessTokenRepository
	persistAccess   bool
	clock           Clock
	logger          *zap.Logger
}

func NewUsecase(
	userRepo repository.UserRepository,
	manager *token.RefreshManager,
	accessTokenRepo repository.AccessTokenRepository,
	persistAccess bool,
	clock Clock,
	logger *zap.Logger,
) *Usecase {
	return &Usecase{
		userRepo:        userRepo,
		manager:         manager,
		accessTokenRepo: accessTokenRepo,
		persistAccess:   persistAccess,
		clock:           clock,
		logger:          logger,
	}
}

func (u *Usecase) ListUsers(ctx context.Context, limit, offset int) ([]model.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return u.userRepo.List(ctx, limit, offset)
}

func (u *Usecase) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// 停止。既存セッションも全てrevokeする。
func (u *Usecase) DeactivateUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := u.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.IsActive {
		user.IsActive = false
		user.UpdatedAt = u.clock.Now()
		if err := u.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	if _, err := u.revokeSessions(ctx, userID); err != nil {
		return nil, err
	}

	u.logger.Info("deactivated user", zap.String("user_id", userID.String()))
	return user, nil
}

// 強制ログアウト。revokeしたセッション数を返す。
func (u *Usecase) ForceLogout(ctx context.Context, userID uuid.UUID) (int64, error) {
	if _, err := u.GetUser(ctx, userID); err != nil {
		return 0, err
	}
	return u.revokeSessions(ctx, userID)
}

func (u *Usecase) revokeSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := u.manager.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	if u.persistAccess {
		if _, err := u.accessTokenRepo.DeleteAllByUserID(ctx, userID); err != nil {
			return count, err
		}
	}
	return count, nil
}
