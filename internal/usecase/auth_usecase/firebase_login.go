package auth_usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/oauth"
	"app/internal/repository"
	"app/internal/token"

	"go.uber.org/zap"
)

var (
	ErrOAuthDisabled       = errors.New("oauth login is disabled")
	ErrOAuthNotInitialized = errors.New("oauth verifier is not initialized")
	ErrOAuthTokenInvalid   = errors.New("oauth token is invalid")
	ErrOAuthEmailRequired  = errors.New("oauth token has no email")
)

type FirebaseLoginInput struct {
	IDToken string
}

type FirebaseLoginOutput struct {
	AccessToken     string
	TokenType       string
	RefreshToken    string
	RefreshLifetime time.Duration
	IsNewUser       bool
	Email           string
}

type FirebaseLoginUsecase struct {
	userRepo        repository.UserRepository
	userDataRepo    repository.UserDataRepository
	verifier        oauth.TokenVerifier
	hasher          PasswordHasher
	idGen           IDGenerator
	clock           Clock
	issuer          *token.Issuer
	manager         *token.RefreshManager
	persister       *AccessTokenPersister
	refreshLifetime time.Duration
	logger          *zap.Logger
}

func NewFirebaseLoginUsecase(
	userRepo repository.UserRepository,
	userDataRepo repository.UserDataRepository,
	verifier oauth.TokenVerifier,
	hasher PasswordHasher,
	idGen IDGenerator,
	clock Clock,
	issuer *token.Issuer,
	manager *token.RefreshManager,
	persister *AccessTokenPersister,
	refreshLifetime time.Duration,
	logger *zap.Logger,
) *FirebaseLoginUsecase {
	return &FirebaseLoginUsecase{
		userRepo:        userRepo,
		userDataRepo:    userDataRepo,
		verifier:        verifier,
		hasher:          hasher,
		idGen:           idGen,
		clock:           clock,
		issuer:          issuer,
		manager:         manager,
		persister:       persister,
		refreshLifetime: refreshLifetime,
		logger:          logger,
	}
}

// IdPのIDトークンでログインする。未知のユーザーは検証済みとして新規作成。
// cookieの付与はハンドラが行うのでrefresh tokenは戻り値で返す。
func (u *FirebaseLoginUsecase) Execute(ctx context.Context, in FirebaseLoginInput) (*FirebaseLoginOutput, error) {
	info, err := u.verifier.VerifyIDToken(ctx, in.IDToken)
	if err != nil {
		switch {
		case errors.Is(err, oauth.ErrDisabled):
			return nil, ErrOAuthDisabled
		case errors.Is(err, oauth.ErrNotInitialized):
			return nil, ErrOAuthNotInitialized
		default:
			return nil, ErrOAuthTokenInvalid
		}
	}

	if info.Email == "" {
		return nil, ErrOAuthEmailRequired
	}

	user, isNew, err := u.findOrCreateUser(ctx, info)
	if err != nil {
		return nil, err
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

	refreshToken, err := u.manager.Issue(ctx, user.ID, u.refreshLifetime)
	if err != nil {
		return nil, err
	}

	return &FirebaseLoginOutput{
		AccessToken:     accessToken,
		TokenType:       "bearer",
		RefreshToken:    refreshToken,
		RefreshLifetime: u.refreshLifetime,
		IsNewUser:       isNew,
		Email:           user.Email,
	}, nil
}

func (u *FirebaseLoginUsecase) findOrCreateUser(ctx context.Context, info *oauth.UserInfo) (*model.User, bool, error) {
	//UIDで既存ユーザーを探す
	user, err := u.userRepo.FindByFirebaseUID(ctx, info.UID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, err
	}

	//同じemailの既存ユーザーにUIDを紐付ける
	email := strings.ToLower(info.Email)
	user, err = u.userRepo.FindByEmail(ctx, email)
	if err == nil {
		uid := info.UID
		user.FirebaseUID = &uid
		user.UpdatedAt = u.clock.Now()
		if err := u.userRepo.Update(ctx, user); err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, err
	}

	//新規作成。IdPが身元を保証しているので検証済みで作る
	randomPassword, err := token.GenerateOpaquePassword()
	if err != nil {
		return nil, false, err
	}
	hashed, err := u.hasher.Hash(randomPassword)
	if err != nil {
		return nil, false, err
	}

	now := u.clock.Now()
	uid := info.UID
	user = &model.User{
		ID:             u.idGen.NewID(),
		Email:          email,
		HashedPassword: hashed,
		IsActive:       true,
		IsSuperuser:    false,
		IsVerified:     true,
		FirebaseUID:    &uid,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, false, err
	}

	data := &model.UserData{
		UserID:    user.ID,
		TextValue: "",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.userDataRepo.Create(ctx, data); err != nil {
		return nil, false, err
	}

	u.logger.Info("created user from oauth login",
		zap.String("user_id", user.ID.String()),
		zap.String("provider", info.Provider),
	)

	return user, true, nil
}
