package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
)

// ランダム文字列を作る。（OSが持つ安全な乱数）
func generateSecureToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", fmt.Errorf("bytesLen must be positive")
	}

	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateCSRFTokenはdouble submit用の乱数トークン（32バイト）。
func GenerateCSRFToken() (string, error) {
	return generateSecureToken(32)
}

// GenerateOpaquePasswordは外部IdP経由ユーザー用の使われないパスワード。
func GenerateOpaquePassword() (string, error) {
	return generateSecureToken(32)
}

// ParseSameSiteは設定文字列（lax/strict/none）をhttp.SameSiteへ。
func ParseSameSite(v string) http.SameSite {
	switch v {
	case "strict", "Strict", "STRICT":
		return http.SameSiteStrictMode
	case "none", "None", "NONE":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
