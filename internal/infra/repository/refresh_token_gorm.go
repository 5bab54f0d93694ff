package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	domainrepo "app/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type refreshTokenGormRepository struct {
	db *gorm.DB //DB接続（GORM）
}

// GORM実装
func NewRefreshTokenRepository(db *gorm.DB) domainrepo.RefreshTokenRepository {
	return &refreshTokenGormRepository{db: db}
}

// リフレッシュトークンを保存。主キー衝突はErrDuplicateToken
func (r *refreshTokenGormRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrDuplicateToken
		}
		return err
	}
	return nil
}

// トークン文字列で1件検索します。
func (r *refreshTokenGormRepository) FindByToken(ctx context.Context, tokenStr string) (*model.RefreshToken, error) {
	var token model.RefreshToken

	err := r.db.WithContext(ctx).
		Where("token = ?", tokenStr).
		First(&token).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrRefreshTokenNotFound
		}
		return nil, err
	}

	return &token, nil
}

// 1件削除。元々ない場合もエラーにしない（冪等）。
func (r *refreshTokenGormRepository) DeleteByToken(ctx context.Context, tokenStr string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("token = ?", tokenStr).
		Delete(&model.RefreshToken{})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// 指定ユーザーのリフレッシュトークンを一括削除します。
// 1本のDELETEで行うので途中状態は見えない。
func (r *refreshTokenGormRepository) DeleteAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.RefreshToken{})

	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// 期限切れを一括削除。定期実行ジョブから呼ぶ。
func (r *refreshTokenGormRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&model.RefreshToken{})

	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
