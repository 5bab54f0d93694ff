package auth_usecase

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// usecase層で共有するsentinel error
var (
	ErrEmailAlreadyRegistered  = errors.New("email already registered")
	ErrInvalidEmail            = errors.New("invalid email address")
	ErrWeakPassword            = errors.New("password does not meet requirements")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrUserInactive            = errors.New("user is inactive")
	ErrUserNotFound            = errors.New("user not found")
	ErrRefreshTokenInvalid     = errors.New("refresh token is invalid")
	ErrVerifyTokenInvalid      = errors.New("verification token is invalid")
	ErrResetTokenInvalid       = errors.New("reset token is invalid")
	ErrCurrentPasswordMismatch = errors.New("current password does not match")
	ErrAlreadyVerified         = errors.New("user already verified")
)

// 時刻取得を差し替え可能にする
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func NewRealClock() Clock { return realClock{} }

// ID生成を差し替え可能にする
type IDGenerator interface {
	NewID() uuid.UUID
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() uuid.UUID { return uuid.New() }

func NewUUIDGenerator() IDGenerator { return uuidGenerator{} }

// パスワードのハッシュ化と照合
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hashed, plain string) error
}

type bcryptHasher struct {
	cost int
}

func NewBcryptHasher() PasswordHasher { return bcryptHasher{cost: 12} }

func (h bcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h bcryptHasher) Verify(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// scoped tokenのaudience
const (
	PurposeVerifyEmail   = "verify-email"
	PurposeResetPassword = "reset-password"
)
