package model

import "time"

// ChatLog 对话记录模型
type ChatLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ConversationID string    `json:"conversation_id" gorm:"index;size:64"` // 所属会话ID
	Role           string    `json:"role" gorm:"size:20"`                  // user | assistant
	Content        string    `json:"content" gorm:"type:text"`
}

// TableName 指定表名
func (ChatLog) TableName() string {
	return "chat_logs"
}
