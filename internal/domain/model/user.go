package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	HashedPassword string    `json:"-" gorm:"column:hashed_password;not null"`
	IsActive       bool      `json:"is_active" gorm:"not null;default:false"`
	IsSuperuser    bool      `json:"is_superuser" gorm:"not null;default:false"`
	IsVerified     bool      `json:"is_verified" gorm:"not null;default:false"`

	// OAuthログイン用。パスワード登録ユーザーはnull
	FirebaseUID *string `json:"-" gorm:"type:varchar(128);uniqueIndex"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 子レコード（user削除でまとめて消す）
	UserData      *UserData      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	AccessTokens  []AccessToken  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	RefreshTokens []RefreshToken `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}
