package handler

import (
	"fmt"
	"time"

	"app/internal/domain/model"
)

// detailフィールドに機械可読コードを入れるエラー形式
type DetailResponse struct {
	Detail string `json:"detail"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserRead struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func fmtLogoutAll(count int64) string {
	return fmt.Sprintf("Successfully logged out from all devices. Revoked %d sessions.", count)
}

func newUserRead(u *model.User) UserRead {
	return UserRead{
		ID:          u.ID.String(),
		Email:       u.Email,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		IsVerified:  u.IsVerified,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
