package model

import "time"

type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatMessage is one turn of the coach conversation.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"index" json:"-"`
	Role      ChatRole  `gorm:"size:8" json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"timestamp"`
}
