package auth_usecase

import (
	"context"
	"errors"
	"strings"

	"app/internal/repository"
	"app/internal/token"
)

type LoginInput struct {
	Email    string
	Password string
}

type LoginOutput struct {
	AccessToken string
	TokenType   string
}

type LoginUsecase struct {
	userRepo  repository.UserRepository
	hasher    PasswordHasher
	issuer    *token.Issuer
	persister *AccessTokenPersister
}

func NewLoginUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	issuer *token.Issuer,
	persister *AccessTokenPersister,
) *LoginUsecase {
	return &LoginUsecase{
		userRepo:  userRepo,
		hasher:    hasher,
		issuer:    issuer,
		persister: persister,
	}
}

// 認証してaccess tokenを返す。
// refresh token cookieの付与はハンドラの外側のミドルウェアが担う。
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	user, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			//存在しないユーザーでも同じエラーにする
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := u.hasher.Verify(user.HashedPassword, in.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	accessToken, err := u.issuer.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	if err := u.persister.Persist(ctx, accessToken, user.ID); err != nil {
		return nil, err
	}

	return &LoginOutput{
		AccessToken: accessToken,
		TokenType:   "bearer",
	}, nil
}
