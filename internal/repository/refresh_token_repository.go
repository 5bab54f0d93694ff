package repository

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"

	"github.com/google/uuid"
)

// リフレッシュトークンが見つかりません
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// 同じトークン文字列が既に存在する（48バイト乱数なら実質起きない）
var ErrDuplicateToken = errors.New("duplicate token")

// DB保存版アクセストークンが見つかりません
var ErrAccessTokenNotFound = errors.New("access token not found")

// リフレッシュトークンの保存・取得・削除
type RefreshTokenRepository interface {
	// 保存。主キー衝突は ErrDuplicateToken
	Create(ctx context.Context, token *model.RefreshToken) error
	// トークン文字列で1件検索。なければ ErrRefreshTokenNotFound
	FindByToken(ctx context.Context, tokenStr string) (*model.RefreshToken, error)
	// 1件削除。消せたらtrue、元々なければfalse（エラーにしない）
	DeleteByToken(ctx context.Context, tokenStr string) (bool, error)
	// 指定ユーザーの全トークンを一括削除し、件数を返す
	DeleteAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	// 期限切れを一括削除（リクエスト経路外の掃除用）
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// DB保存版アクセストークン（互換用）も同じ形
type AccessTokenRepository interface {
	Create(ctx context.Context, token *model.AccessToken) error
	FindByToken(ctx context.Context, tokenStr string) (*model.AccessToken, error)
	DeleteByToken(ctx context.Context, tokenStr string) (bool, error)
	DeleteAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
