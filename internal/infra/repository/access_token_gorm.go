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

type accessTokenGormRepository struct {
	db *gorm.DB
}

// GORM実装（互換用アクセストークン保存）
func NewAccessTokenRepository(db *gorm.DB) domainrepo.AccessTokenRepository {
	return &accessTokenGormRepository{db: db}
}

func (r *accessTokenGormRepository) Create(ctx context.Context, token *model.AccessToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrDuplicateToken
		}
		return err
	}
	return nil
}

func (r *accessTokenGormRepository) FindByToken(ctx context.Context, tokenStr string) (*model.AccessToken, error) {
	var token model.AccessToken

	err := r.db.WithContext(ctx).
		Where("token = ?", tokenStr).
		First(&token).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrAccessTokenNotFound
		}
		return nil, err
	}

	return &token, nil
}

func (r *accessTokenGormRepository) DeleteByToken(ctx context.Context, tokenStr string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("token = ?", tokenStr).
		Delete(&model.AccessToken{})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *accessTokenGormRepository) DeleteAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.AccessToken{})

	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

func (r *accessTokenGormRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&model.AccessToken{})

	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}
