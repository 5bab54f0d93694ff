package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"app/internal/token"

	"github.com/labstack/echo/v4"
)

// CSRFConfig はdouble submit cookie方式の設定。
type CSRFConfig struct {
	CookieName   string
	HeaderName   string
	CookieSecure bool
	ExemptPaths  []string
}

// CSRF はcookieとヘッダの一致を検証する。
// cookieはJSから読めるようにHttpOnlyを付けない。
func CSRF(cfg CSRFConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			if isExempt(req.URL.Path, cfg.ExemptPaths) {
				return next(c)
			}

			cookie, err := req.Cookie(cfg.CookieName)

			//安全なメソッドはcookieを配るだけ
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				if err != nil || cookie.Value == "" {
					if err := issueCSRFCookie(c, cfg); err != nil {
						return err
					}
				}
				return next(c)
			}

			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusForbidden, detailJSON("CSRF_TOKEN_MISSING"))
			}

			header := req.Header.Get(cfg.HeaderName)
			if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
				return c.JSON(http.StatusForbidden, detailJSON("CSRF_TOKEN_INVALID"))
			}

			return next(c)
		}
	}
}

func isExempt(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func issueCSRFCookie(c echo.Context, cfg CSRFConfig) error {
	value, err := token.GenerateCSRFToken()
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    value,
		Path:     "/",
		Secure:   cfg.CookieSecure,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
