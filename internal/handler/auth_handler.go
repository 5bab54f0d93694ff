package handler

import (
	"errors"
	"net/http"

	"app/internal/middleware"
	"app/internal/token"
	"app/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AuthHandler struct {
	registerUC      *auth_usecase.RegisterUserUsecase
	loginUC         *auth_usecase.LoginUsecase
	refreshUC       *auth_usecase.RefreshUsecase
	logoutUC        *auth_usecase.LogoutUsecase
	changePwUC      *auth_usecase.ChangePasswordUsecase
	verifyUC        *auth_usecase.VerifyEmailUsecase
	passwordResetUC *auth_usecase.PasswordResetUsecase
	firebaseUC      *auth_usecase.FirebaseLoginUsecase
	manager         *token.RefreshManager
	firebaseEnabled bool
	logger          *zap.Logger
}

func NewAuthHandler(
	registerUC *auth_usecase.RegisterUserUsecase,
	loginUC *auth_usecase.LoginUsecase,
	refreshUC *auth_usecase.RefreshUsecase,
	logoutUC *auth_usecase.LogoutUsecase,
	changePwUC *auth_usecase.ChangePasswordUsecase,
	verifyUC *auth_usecase.VerifyEmailUsecase,
	passwordResetUC *auth_usecase.PasswordResetUsecase,
	firebaseUC *auth_usecase.FirebaseLoginUsecase,
	manager *token.RefreshManager,
	firebaseEnabled bool,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		registerUC:      registerUC,
		loginUC:         loginUC,
		refreshUC:       refreshUC,
		logoutUC:        logoutUC,
		changePwUC:      changePwUC,
		verifyUC:        verifyUC,
		passwordResetUC: passwordResetUC,
		firebaseUC:      firebaseUC,
		manager:         manager,
		firebaseEnabled: firebaseEnabled,
		logger:          logger,
	}
}

// POST /api/auth/register
func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_BODY"})
	}

	out, err := h.registerUC.Execute(c.Request().Context(), auth_usecase.RegisterUserInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth_usecase.ErrEmailAlreadyRegistered):
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "REGISTER_USER_ALREADY_EXISTS"})
		case errors.Is(err, auth_usecase.ErrInvalidEmail):
			return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "REGISTER_INVALID_EMAIL"})
		case errors.Is(err, auth_usecase.ErrWeakPassword):
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "REGISTER_INVALID_PASSWORD"})
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":           out.UserID,
		"email":        out.Email,
		"is_active":    out.IsActive,
		"is_superuser": false,
		"is_verified":  out.IsVerified,
	})
}

// POST /api/auth/login（form形式）
// refresh cookieはここでは付けない。外側のミドルウェアが応答を見て付ける。
func (h *AuthHandler) Login(c echo.Context) error {
	email := c.FormValue("username")
	password := c.FormValue("password")

	out, err := h.loginUC.Execute(c.Request().Context(), auth_usecase.LoginInput{
		Email:    email,
		Password: password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth_usecase.ErrInvalidCredentials),
			errors.Is(err, auth_usecase.ErrUserInactive):
			//存在・状態を漏らさないため同じ応答にする
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "LOGIN_BAD_CREDENTIALS"})
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": out.AccessToken,
		"token_type":   out.TokenType,
	})
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(h.manager.CookieName())
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "REFRESH_TOKEN_MISSING"})
	}

	out, err := h.refreshUC.Execute(c.Request().Context(), auth_usecase.RefreshInput{
		RefreshToken: cookie.Value,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth_usecase.ErrRefreshTokenInvalid):
			return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "REFRESH_TOKEN_INVALID"})
		case errors.Is(err, auth_usecase.ErrUserInactive):
			return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "USER_INACTIVE"})
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": out.AccessToken,
		"token_type":   out.TokenType,
	})
}

// POST /api/auth/logout
// cookieが無くても成功を返す。
func (h *AuthHandler) Logout(c echo.Context) error {
	var refreshToken string
	if cookie, err := c.Cookie(h.manager.CookieName()); err == nil {
		refreshToken = cookie.Value
	}

	if err := h.logoutUC.Execute(c.Request().Context(), refreshToken); err != nil {
		return h.serverError(c, err)
	}

	c.SetCookie(h.manager.ClearCookie())
	return c.JSON(http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// POST /api/auth/logout-all（要認証）
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "UNAUTHORIZED"})
	}

	count, err := h.logoutUC.ExecuteAll(c.Request().Context(), user.ID)
	if err != nil {
		return h.serverError(c, err)
	}

	c.SetCookie(h.manager.ClearCookie())
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmtLogoutAll(count),
	})
}

// POST /api/auth/change-password（要認証）
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "UNAUTHORIZED"})
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_BODY"})
	}

	err := h.changePwUC.Execute(c.Request().Context(), auth_usecase.ChangePasswordInput{
		User:            user,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth_usecase.ErrCurrentPasswordMismatch):
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "CHANGE_PASSWORD_INVALID_CURRENT"})
		case errors.Is(err, auth_usecase.ErrWeakPassword):
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "CHANGE_PASSWORD_INVALID_NEW"})
		default:
			return h.serverError(c, err)
		}
	}

	//変更後は再ログインが必要になるのでcookieも消す
	c.SetCookie(h.manager.ClearCookie())
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// POST /api/auth/request-verify-token
func (h *AuthHandler) RequestVerifyToken(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_BODY"})
	}

	if err := h.verifyUC.RequestVerify(c.Request().Context(), req.Email); err != nil {
		return h.serverError(c, err)
	}

	return c.NoContent(http.StatusAccepted)
}

// POST /api/auth/verify
func (h *AuthHandler) Verify(c echo.Context) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_BODY"})
	}

	out, err := h.verifyUC.Verify(c.Request().Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, auth_usecase.ErrVerifyTokenInvalid):
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "VERIFY_USER_BAD_TOKEN"})
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":          out.UserID,
		"email":       out.Email,
		"is_active":   out.IsActive,
		"is_verified": out.IsVerified,
	})
}

// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_BODY"})
	}

	if err := h.passwordResetUC.Forgot(c.Request().Context(), req.Email); err != nil {
		return h.serverError(c, err)
	}

	return c.NoContent(http.StatusAccepted)
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_BODY"})
	}

	err := h.passwordResetUC.Reset(c.Request().Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth_usecase.ErrResetTokenInvalid):
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "RESET_PASSWORD_BAD_TOKEN"})
		case errors.Is(err, auth_usecase.ErrWeakPassword):
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "RESET_PASSWORD_INVALID_PASSWORD"})
		default:
			return h.serverError(c, err)
		}
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}

// POST /api/auth/firebase
// このエンドポイントだけはusecaseがrefresh tokenを発行し、ここでcookieにする。
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if !h.firebaseEnabled {
		return c.JSON(http.StatusServiceUnavailable, DetailResponse{Detail: "FIREBASE_AUTH_DISABLED"})
	}

	var req struct {
		IDToken string `json:"id_token"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_BODY"})
	}

	out, err := h.firebaseUC.Execute(c.Request().Context(), auth_usecase.FirebaseLoginInput{
		IDToken: req.IDToken,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth_usecase.ErrOAuthDisabled):
			return c.JSON(http.StatusServiceUnavailable, DetailResponse{Detail: "FIREBASE_AUTH_DISABLED"})
		case errors.Is(err, auth_usecase.ErrOAuthNotInitialized):
			return c.JSON(http.StatusServiceUnavailable, DetailResponse{Detail: "FIREBASE_NOT_INITIALIZED"})
		case errors.Is(err, auth_usecase.ErrOAuthTokenInvalid):
			return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "FIREBASE_TOKEN_INVALID"})
		case errors.Is(err, auth_usecase.ErrOAuthEmailRequired):
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "FIREBASE_EMAIL_REQUIRED"})
		case errors.Is(err, auth_usecase.ErrUserInactive):
			return c.JSON(http.StatusBadRequest, DetailResponse{Detail: "LOGIN_BAD_CREDENTIALS"})
		default:
			return h.serverError(c, err)
		}
	}

	settings := h.manager.CookieSettings(out.RefreshLifetime)
	c.SetCookie(settings.Cookie(out.RefreshToken))

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": out.AccessToken,
		"token_type":   out.TokenType,
		"is_new_user":  out.IsNewUser,
		"email":        out.Email,
	})
}

func (h *AuthHandler) serverError(c echo.Context, err error) error {
	h.logger.Error("auth handler error", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "INTERNAL_SERVER_ERROR"})
}
