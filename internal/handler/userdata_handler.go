package handler

import (
	"net/http"
	"time"

	"app/internal/middleware"
	"app/internal/usecase/userdata_usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type UserDataHandler struct {
	uc     *userdata_usecase.Usecase
	logger *zap.Logger
}

func NewUserDataHandler(uc *userdata_usecase.Usecase, logger *zap.Logger) *UserDataHandler {
	return &UserDataHandler{uc: uc, logger: logger}
}

type userDataRead struct {
	UserID    string    `json:"user_id"`
	TextValue string    `json:"text_value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GET /api/user-data
func (h *UserDataHandler) Get(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "UNAUTHORIZED"})
	}

	out, err := h.uc.Get(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load user data", zap.String("user_id", user.ID.String()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "INTERNAL_SERVER_ERROR"})
	}

	return c.JSON(http.StatusOK, userDataRead{
		UserID:    out.UserID,
		TextValue: out.TextValue,
		UpdatedAt: out.UpdatedAt,
	})
}

// PUT /api/user-data
func (h *UserDataHandler) Update(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, DetailResponse{Detail: "UNAUTHORIZED"})
	}

	var req struct {
		TextValue string `json:"text_value"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_BODY"})
	}

	out, err := h.uc.Update(c.Request().Context(), user.ID, req.TextValue)
	if err != nil {
		h.logger.Error("failed to update user data", zap.String("user_id", user.ID.String()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "INTERNAL_SERVER_ERROR"})
	}

	return c.JSON(http.StatusOK, userDataRead{
		UserID:    out.UserID,
		TextValue: out.TextValue,
		UpdatedAt: out.UpdatedAt,
	})
}
