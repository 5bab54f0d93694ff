package auth_usecase

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/mailer"
	"app/internal/repository"
	"app/internal/token"

	"go.uber.org/zap"
)

// 最低文字数と簡易な弱パスワードリスト
const minPasswordLength = 12

var weakPasswords = map[string]struct{}{
	"password1234": {},
	"123456789012": {},
	"qwertyuiop12": {},
	"letmeinplease": {},
}

type RegisterUserInput struct {
	Email    string
	Password string
}

type RegisterUserOutput struct {
	UserID     string
	Email      string
	IsActive   bool
	IsVerified bool
}

type RegisterUserUsecase struct {
	userRepo            repository.UserRepository
	hasher              PasswordHasher
	idGen               IDGenerator
	clock               Clock
	issuer              *token.Issuer
	mailer              mailer.Mailer
	verifyTokenLifetime time.Duration
	logger              *zap.Logger
}

func NewRegisterUserUsecase(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	idGen IDGenerator,
	clock Clock,
	issuer *token.Issuer,
	m mailer.Mailer,
	verifyTokenLifetime time.Duration,
	logger *zap.Logger,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		userRepo:            userRepo,
		hasher:              hasher,
		idGen:               idGen,
		clock:               clock,
		issuer:              issuer,
		mailer:              m,
		verifyTokenLifetime: verifyTokenLifetime,
		logger:              logger,
	}
}

// 登録。確認メールを送るまでがこのusecaseの責務。
// 作成直後はinactiveかつ未検証で、メール検証で有効化される。
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (*RegisterUserOutput, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	//重複チェック。Create時のunique制約でも防ぐ
	if _, err := u.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := u.clock.Now()
	user := &model.User{
		ID:             u.idGen.NewID(),
		Email:          email,
		HashedPassword: hashed,
		IsActive:       false,
		IsSuperuser:    false,
		IsVerified:     false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}

	//確認メールの送信失敗は登録自体を失敗にしない
	verifyToken, err := u.issuer.IssueScoped(user.ID, PurposeVerifyEmail, u.verifyTokenLifetime)
	if err != nil {
		u.logger.Error("failed to issue verification token", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else if err := u.mailer.SendVerificationEmail(ctx, user.Email, verifyToken); err != nil {
		u.logger.Error("failed to send verification email", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	return &RegisterUserOutput{
		UserID:     user.ID.String(),
		Email:      user.Email,
		IsActive:   user.IsActive,
		IsVerified: user.IsVerified,
	}, nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	if _, ok := weakPasswords[strings.ToLower(password)]; ok {
		return ErrWeakPassword
	}
	return nil
}
