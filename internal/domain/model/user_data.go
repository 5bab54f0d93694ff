package model

import (
	"time"

	"github.com/google/uuid"
)

// ユーザー1人につき1件のテキストデータ。
type UserData struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	TextValue string    `json:"text_value" gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
