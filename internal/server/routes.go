package server

import (
	"app/internal/handler"

	"github.com/labstack/echo/v4"
)

// RoutesはNewに渡すルーティング登録関数を作る。
func Routes(
	authH *handler.AuthHandler,
	userH *handler.UserHandler,
	userDataH *handler.UserDataHandler,
	adminH *handler.AdminHandler,
) func(e *echo.Echo, authGuard, adminGuard, verifiedGuard echo.MiddlewareFunc) {
	return func(e *echo.Echo, authGuard, adminGuard, verifiedGuard echo.MiddlewareFunc) {
		auth := e.Group("/api/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.POST("/logout", authH.Logout, authGuard)
		auth.POST("/logout-all", authH.LogoutAll, authGuard)
		auth.POST("/change-password", authH.ChangePassword, authGuard)
		auth.POST("/request-verify-token", authH.RequestVerifyToken)
		auth.POST("/verify", authH.Verify)
		auth.POST("/forgot-password", authH.ForgotPassword)
		auth.POST("/reset-password", authH.ResetPassword)
		auth.POST("/firebase", authH.FirebaseLogin)

		users := e.Group("/api/users", authGuard)
		users.GET("/me", userH.GetMe)
		users.PATCH("/me", userH.UpdateMe)

		userData := e.Group("/api/user-data", authGuard, verifiedGuard)
		userData.GET("", userDataH.Get)
		userData.PUT("", userDataH.Update)

		admin := e.Group("/api/admin", authGuard, adminGuard)
		admin.GET("/users", adminH.ListUsers)
		admin.GET("/users/:id", adminH.GetUser)
		admin.POST("/users/:id/deactivate", adminH.DeactivateUser)
		admin.POST("/users/:id/force-logout", adminH.ForceLogout)
	}
}
