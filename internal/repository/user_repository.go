package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"

	"github.com/google/uuid"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// emailが既に使われている
var ErrEmailTaken = errors.New("email already taken")

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成。email重複は ErrEmailTaken
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	//メールからユーザーを1件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// Firebase UIDから1件取得（OAuthログイン用）。
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (*model.User, error)
	// ユーザー情報の更新=>アクティブかどうか・検証済みフラグ・パスワード変更など
	Update(ctx context.Context, user *model.User) error
	// 管理画面用の一覧（作成日時の降順）。
	List(ctx context.Context, limit int, offset int) ([]model.User, error)
}
