package handler

import (
	"errors"
	"net/http"
	"strconv"

	"app/internal/usecase/admin_usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AdminHandler struct {
	uc     *admin_usecase.Usecase
	logger *zap.Logger
}

func NewAdminHandler(uc *admin_usecase.Usecase, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{uc: uc, logger: logger}
}

// GET /api/admin/users
func (h *AdminHandler) ListUsers(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	users, err := h.uc.ListUsers(c.Request().Context(), limit, offset)
	if err != nil {
		return h.serverError(c, err)
	}

	out := make([]UserRead, 0, len(users))
	for i := range users {
		out = append(out, newUserRead(&users[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/admin/users/:id
func (h *AdminHandler) GetUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_USER_ID"})
	}

	user, err := h.uc.GetUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, admin_usecase.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, DetailResponse{Detail: "USER_NOT_FOUND"})
		}
		return h.serverError(c, err)
	}

	return c.JSON(http.StatusOK, newUserRead(user))
}

// POST /api/admin/users/:id/deactivate
func (h *AdminHandler) DeactivateUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_USER_ID"})
	}

	user, err := h.uc.DeactivateUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, admin_usecase.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, DetailResponse{Detail: "USER_NOT_FOUND"})
		}
		return h.serverError(c, err)
	}

	return c.JSON(http.StatusOK, newUserRead(user))
}

// POST /api/admin/users/:id/force-logout
func (h *AdminHandler) ForceLogout(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, DetailResponse{Detail: "INVALID_USER_ID"})
	}

	count, err := h.uc.ForceLogout(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, admin_usecase.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, DetailResponse{Detail: "USER_NOT_FOUND"})
		}
		return h.serverError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":          "Sessions revoked",
		"revoked_sessions": count,
	})
}

func (h *AdminHandler) serverError(c echo.Context, err error) error {
	h.logger.Error("admin handler error", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, DetailResponse{Detail: "INTERNAL_SERVER_ERROR"})
}
