package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// 期限切れ
	ErrTokenExpired = errors.New("token expired")
	// 署名が合わない
	ErrTokenSignature = errors.New("token signature invalid")
	// そもそもJWTとして読めない・subが無い
	ErrTokenMalformed = errors.New("token malformed")
)

// Issuerは署名付きアクセストークンの発行と検証。状態は持たない。
// シークレットと有効期間はプロセス起動時に固定。シークレットを
// 変えると発行済みトークンは全部無効になる（選択的失効はできない）。
type Issuer struct {
	secret   []byte
	lifetime time.Duration
	clock    Clock
}

// DI
func NewIssuer(secret string, lifetime time.Duration, clock Clock) *Issuer {
	if clock == nil {
		clock = realClock{}
	}
	return &Issuer{
		secret:   []byte(secret),
		lifetime: lifetime,
		clock:    clock,
	}
}

// Lifetimeは発行するトークンの有効期間。
func (i *Issuer) Lifetime() time.Duration { return i.lifetime }

// Issueは {sub, exp, iat} をHS256で署名して返す。
func (i *Issuer) Issue(userID uuid.UUID) (string, error) {
	now := i.clock.Now()

	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": now.Unix(),
		"exp": now.Add(i.lifetime).Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// Verifyは署名と期限を検証してuser_idを返す。
func (i *Issuer) Verify(tokenStr string) (uuid.UUID, error) {
	parsed, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.clock.Now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return uuid.Nil, ErrTokenSignature
		default:
			return uuid.Nil, ErrTokenMalformed
		}
	}

	return subjectFromClaims(parsed.Claims)
}

// IssueScopedはメール確認・パスワードリセット等の用途限定トークン。
// audに用途を入れて取り違えを防ぐ。
func (i *Issuer) IssueScoped(userID uuid.UUID, purpose string, lifetime time.Duration) (string, error) {
	now := i.clock.Now()

	claims := jwt.MapClaims{
		"sub": userID.String(),
		"aud": purpose,
		"iat": now.Unix(),
		"exp": now.Add(lifetime).Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// VerifyScopedは用途も一致しないと通らない。
func (i *Issuer) VerifyScoped(tokenStr string, purpose string) (uuid.UUID, error) {
	parsed, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.clock.Now), jwt.WithAudience(purpose))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return uuid.Nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return uuid.Nil, ErrTokenSignature
		default:
			return uuid.Nil, ErrTokenMalformed
		}
	}

	return subjectFromClaims(parsed.Claims)
}

// DecodeSubjectUnverifiedは署名を検証せずにsubだけ読む。
// 同一プロセス内で直前に自分が発行したトークンにだけ使ってよい。
// 外から受け取ったトークンには絶対に使わないこと。
func DecodeSubjectUnverified(tokenStr string) (uuid.UUID, error) {
	parser := jwt.NewParser()

	parsed, _, err := parser.ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}

	return subjectFromClaims(parsed.Claims)
}

func subjectFromClaims(claims jwt.Claims) (uuid.UUID, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, ErrTokenMalformed
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}

	return id, nil
}
