package auth_usecase

import (
	"context"

	"app/internal/domain/model"
	"app/internal/repository"
	"app/internal/token"
)

type ChangePasswordInput struct {
	User            *model.User
	CurrentPassword string
	NewPassword     string
}

type ChangePasswordUsecase struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	manager  *token.RefreshManager
	clock    Clock
}

func NewChangePasswordUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	manager *token.RefreshManager,
	clock Clock,
) *ChangePasswordUsecase {
	return &ChangePasswordUsecase{
		userRepo: userRepo,
		hasher:   hasher,
		manager:  manager,
		clock:    clock,
	}
}

// 現在のパスワード確認の上で更新し、他のセッションを全てrevokeする。
func (u *ChangePasswordUsecase) Execute(ctx context.Context, in ChangePasswordInput) error {
	if err := u.hasher.Verify(in.User.HashedPassword, in.CurrentPassword); err != nil {
		return ErrCurrentPasswordMismatch
	}

	if err := ValidatePassword(in.NewPassword); err != nil {
		return err
	}

	hashed, err := u.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}

	in.User.HashedPassword = hashed
	in.User.UpdatedAt = u.clock.Now()
	if err := u.userRepo.Update(ctx, in.User); err != nil {
		return err
	}

	//漏洩の可能性を考えて既存refresh tokenを全て破棄
	if _, err := u.manager.RevokeAll(ctx, in.User.ID); err != nil {
		return err
	}

	return nil
}
