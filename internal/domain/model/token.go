package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessTokenはDBに保存するアクセストークン（互換用）。
// 検証は署名で行うのでリクエスト経路では読まない。管理側の失効用。
type AccessToken struct {
	Token     string    `json:"-" gorm:"type:varchar(500);primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
}

// RefreshTokenは長寿命の不透明トークン。
// トークン文字列そのものが主キー（検証はO(1)の点引き）。
type RefreshToken struct {
	Token     string    `json:"-" gorm:"type:varchar(500);primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
}
