package token

import (
	"context"
	"errors"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"

	"github.com/google/uuid"
)

// リフレッシュトークンが無い・期限切れ・不正
var ErrRefreshInvalid = errors.New("refresh token invalid")

// Cookieの属性。I/Oなしの純粋な値
type CookieSettings struct {
	Name     string
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
	MaxAge   int // 秒
	Path     string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClockは本物の時計。テストでは固定時計に差し替える。
func RealClock() Clock { return realClock{} }

// RefreshManagerはリフレッシュトークンの発行・検証・失効を担当。
type RefreshManager struct {
	repo  repository.RefreshTokenRepository
	clock Clock

	cookieName     string
	cookieSecure   bool
	cookieSameSite http.SameSite
}

// DI
func NewRefreshManager(
	repo repository.RefreshTokenRepository,
	clock Clock,
	cookieName string,
	cookieSecure bool,
	cookieSameSite http.SameSite,
) *RefreshManager {
	if clock == nil {
		clock = realClock{}
	}
	return &RefreshManager{
		repo:           repo,
		clock:          clock,
		cookieName:     cookieName,
		cookieSecure:   cookieSecure,
		cookieSameSite: cookieSameSite,
	}
}

// GenerateRefreshTokenは48バイト乱数のURL-safe文字列（64文字）を作る。
func GenerateRefreshToken() (string, error) {
	return generateSecureToken(48)
}

// Issueはトークンを生成して保存し、平文を返す。
// 平文が手に入るのはここだけ。呼び出し側はログに出さないこと。
func (m *RefreshManager) Issue(ctx context.Context, userID uuid.UUID, lifetime time.Duration) (string, error) {
	tokenStr, err := GenerateRefreshToken()
	if err != nil {
		return "", err
	}

	now := m.clock.Now()
	record := &model.RefreshToken{
		Token:     tokenStr,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}

	if err := m.repo.Create(ctx, record); err != nil {
		return "", err
	}

	return tokenStr, nil
}

// Validateはトークンを検証してuser_idを返す。
// 期限切れの行はその場で消す（lazy cleanup）。削除は冪等なので
// 同じ期限切れトークンの同時検証が競合しても両方invalidで終わる。
func (m *RefreshManager) Validate(ctx context.Context, tokenStr string) (uuid.UUID, error) {
	record, err := m.repo.FindByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			return uuid.Nil, ErrRefreshInvalid
		}
		return uuid.Nil, err
	}

	if !record.ExpiresAt.After(m.clock.Now()) {
		// 消せなくてもinvalidには変わりない
		_, _ = m.repo.DeleteByToken(ctx, tokenStr)
		return uuid.Nil, ErrRefreshInvalid
	}

	return record.UserID, nil
}

// Revokeは1件失効（単一セッションのログアウト）。
// 2回目はfalseが返るだけでエラーにしない。
func (m *RefreshManager) Revoke(ctx context.Context, tokenStr string) (bool, error) {
	return m.repo.DeleteByToken(ctx, tokenStr)
}

// RevokeAllは全デバイスのログアウト。1本の一括DELETEで件数を返す。
func (m *RefreshManager) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return m.repo.DeleteAllByUserID(ctx, userID)
}

// CookieSettingsはリフレッシュトークンCookieの属性を返す。純粋関数。
// HttpOnlyは常にtrue（JSから読めたら意味がない）。
func (m *RefreshManager) CookieSettings(lifetime time.Duration) CookieSettings {
	return CookieSettings{
		Name:     m.cookieName,
		HTTPOnly: true,
		Secure:   m.cookieSecure,
		SameSite: m.cookieSameSite,
		MaxAge:   int(lifetime.Seconds()),
		Path:     "/api/auth", // authエンドポイントにだけ送られる
	}
}

// Cookie は settings から *http.Cookie を組み立てる。
func (s CookieSettings) Cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Value:    value,
		Path:     s.Path,
		MaxAge:   s.MaxAge,
		HttpOnly: s.HTTPOnly,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	}
}

// ClearCookieは同じ名前・パスでMax-Age=0のCookieを返す（ログアウト用）。
func (m *RefreshManager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookieSecure,
		SameSite: m.cookieSameSite,
	}
}

// CookieNameは設定済みのCookie名。
func (m *RefreshManager) CookieName() string { return m.cookieName }
