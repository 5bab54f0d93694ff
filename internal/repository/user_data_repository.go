package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"

	"github.com/google/uuid"
)

var ErrUserDataNotFound = errors.New("user data not found")

// ユーザーデータ（1人1件）の保存・取得
type UserDataRepository interface {
	Create(ctx context.Context, data *model.UserData) error
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.UserData, error)
	Update(ctx context.Context, data *model.UserData) error
}
