package auth_usecase

import (
	"context"

	"app/internal/repository"
	"app/internal/token"

	"github.com/google/uuid"
)

type LogoutUsecase struct {
	manager         *token.RefreshManager
	accessTokenRepo repository.AccessTokenRepository
	persistAccess   bool
}

func NewLogoutUsecase(
	manager *token.RefreshManager,
	accessTokenRepo repository.AccessTokenRepository,
	persistAccess bool,
) *LogoutUsecase {
	return &LogoutUsecase{
		manager:         manager,
		accessTokenRepo: accessTokenRepo,
		persistAccess:   persistAccess,
	}
}

// 単一セッションのログアウト。tokenが無くても成功扱い。
func (u *LogoutUsecase) Execute(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	_, err := u.manager.Revoke(ctx, refreshToken)
	return err
}

// 全セッションのログアウト。revokeしたセッション数を返す。
func (u *LogoutUsecase) ExecuteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := u.manager.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	//永続化したaccess tokenも一緒に無効化する
	if u.persistAccess {
		if _, err := u.accessTokenRepo.DeleteAllByUserID(ctx, userID); err != nil {
			return count, err
		}
	}

	return count, nil
}
