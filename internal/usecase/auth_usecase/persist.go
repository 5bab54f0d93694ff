package auth_usecase

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"

	"github.com/google/uuid"
)

// AccessTokenPersisterはaccess tokenのDB保存を担当する（互換運用）。
// 検証はJWT署名で行うため、保存した行は管理側の一括失効にだけ使う。
type AccessTokenPersister struct {
	repo     repository.AccessTokenRepository
	enabled  bool
	lifetime time.Duration
	clock    Clock
}

func NewAccessTokenPersister(
	repo repository.AccessTokenRepository,
	enabled bool,
	lifetime time.Duration,
	clock Clock,
) *AccessTokenPersister {
	return &AccessTokenPersister{
		repo:     repo,
		enabled:  enabled,
		lifetime: lifetime,
		clock:    clock,
	}
}

// Persistはログイン成功時に呼ばれる。無効化時は何もしない。
// 同一秒の再ログインはトークンが一致するため、主キー衝突は成功扱い。
func (p *AccessTokenPersister) Persist(ctx context.Context, tokenStr string, userID uuid.UUID) error {
	if p == nil || !p.enabled {
		return nil
	}
	now := p.clock.Now()
	err := p.repo.Create(ctx, &model.AccessToken{
		Token:     tokenStr,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.lifetime),
	})
	if errors.Is(err, repository.ErrDuplicateToken) {
		return nil
	}
	return err
}
