package middleware

import (
	"net/http"
	"strings"

	"app/internal/domain/model"
	"app/internal/repository"
	"app/internal/token"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserKey = "auth_user" // *model.User
)

type detailResponse struct {
	Detail string `json:"detail"`
}

func detailJSON(msg string) detailResponse {
	return detailResponse{Detail: msg}
}

// bearerAuth用のJWT検証ミドルウェア。
// 署名・期限を検証してからDBのユーザーを引き、activeでなければ401。
func AuthJWT(issuer *token.Issuer, userRepo repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, detailJSON("UNAUTHORIZED"))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, detailJSON("UNAUTHORIZED"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, detailJSON("UNAUTHORIZED"))
			}

			//署名と期限を検証
			userID, err := issuer.Verify(rawToken)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, detailJSON("UNAUTHORIZED"))
			}

			//ユーザーを取得（削除済み・停止済みを弾く）
			user, err := userRepo.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return c.JSON(http.StatusUnauthorized, detailJSON("UNAUTHORIZED"))
			}
			if !user.IsActive {
				return c.JSON(http.StatusUnauthorized, detailJSON("USER_INACTIVE"))
			}

			//contextへ保存
			c.Set(CtxUserKey, user)

			return next(c)
		}
	}
}

// contextからユーザーを取り出す。AuthJWTの後ろでだけ使える。
func CurrentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(CtxUserKey).(*model.User)
	return user, ok
}

// 検証済みユーザーだけ許可（user-data等）。
func RequireVerified() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, detailJSON("UNAUTHORIZED"))
			}
			if !user.IsVerified {
				return c.JSON(http.StatusForbidden, detailJSON("USER_NOT_VERIFIED"))
			}
			return next(c)
		}
	}
}

// 管理者だけ許可。
func RequireSuperuser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, detailJSON("UNAUTHORIZED"))
			}

			//一般ユーザーは拒否
			if !user.IsSuperuser {
				return c.JSON(http.StatusForbidden, detailJSON("FORBIDDEN"))
			}

			return next(c)
		}
	}
}
