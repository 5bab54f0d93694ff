package auth_usecase

import (
	"context"
	"errors"

	"app/internal/repository"
	"app/internal/token"
)

type RefreshInput struct {
	RefreshToken string
}

type RefreshOutput struct {
	AccessToken string
	TokenType   string
}

type RefreshUsecase struct {
	userRepo repository.UserRepository
	manager  *token.RefreshManager
	issuer   *token.Issuer
}

func NewRefreshUsecase(
	userRepo repository.UserRepository,
	manager *token.RefreshManager,
	issuer *token.Issuer,
) *RefreshUsecase {
	return &RefreshUsecase{
		userRepo: userRepo,
		manager:  manager,
		issuer:   issuer,
	}
}

// refresh tokenを検証して新しいaccess tokenを発行する。
// tokenのrotationはしない。期限までは同じtokenを使い続けられる。
func (u *RefreshUsecase) Execute(ctx context.Context, in RefreshInput) (*RefreshOutput, error) {
	userID, err := u.manager.Validate(ctx, in.RefreshToken)
	if err != nil {
		if errors.Is(err, token.ErrRefreshInvalid) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, err
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	accessToken, err := u.issuer.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &RefreshOutput{
		AccessToken: accessToken,
		TokenType:   "bearer",
	}, nil
}
