package memory

import (
	"crypto/sha256"
	"fmt"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/yujm888/finrag/internal/llm"
	"github.com/yujm888/finrag/internal/model"
	"gorm.io/gorm"
)

// Manager 会话记忆管理,对话历史持久化在 SQLite,
// 问答缓存优先走 Redis(如启用),回落到数据库
type Manager struct {
	db    *gorm.DB
	redis *RedisCache
}

// NewManager 创建记忆管理器并迁移表结构
func NewManager(db *gorm.DB, redis *RedisCache) (*Manager, error) {
	if err := db.AutoMigrate(&model.ChatLog{}, &model.QACache{}); err != nil {
		return nil, fmt.Errorf("failed to migrate memory tables: %w", err)
	}
	return &Manager{db: db, redis: redis}, nil
}

// GetHistory 按时间顺序返回会话最近 limit 条消息
func (m *Manager) GetHistory(conversationID string, limit int) ([]llm.Message, error) {
	var chatLogs []model.ChatLog
	// 同一轮问答的两条消息可能落在同一时间戳上,用 id 保证次序稳定
	query := m.db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&chatLogs).Error; err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	// 查询按时间倒序取最近 N 条,返回前恢复正序
	messages := make([]llm.Message, 0, len(chatLogs))
	for i := len(chatLogs) - 1; i >= 0; i-- {
		messages = append(messages, llm.Message{
			Role:    chatLogs[i].Role,
			Content: chatLogs[i].Content,
		})
	}
	return messages, nil
}

// SaveMessage 追加一条会话消息
func (m *Manager) SaveMessage(conversationID, role, content string) error {
	return m.db.Create(&model.ChatLog{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
	}).Error
}

// GetCachedAnswer 查询问答缓存,命中时更新命中计数
func (m *Manager) GetCachedAnswer(question string) (string, bool) {
	hash := questionHash(question)

	if m.redis != nil {
		if answer, hit, err := m.redis.GetAnswer(hash); err == nil && hit {
			logx.Debug("QA cache hit in redis")
			return answer, true
		}
	}

	var cached model.QACache
	err := m.db.Where("question_hash = ?", hash).First(&cached).Error
	if err != nil {
		return "", false
	}

	m.db.Model(&cached).Updates(map[string]any{
		"hit_count":   gorm.Expr("hit_count + 1"),
		"last_hit_at": time.Now(),
	})

	return cached.Answer, true
}

// UpdateQACache 写入问答缓存
func (m *Manager) UpdateQACache(question, answer string) error {
	hash := questionHash(question)

	if m.redis != nil {
		if err := m.redis.SetAnswer(hash, answer); err != nil {
			logx.Warn("Failed to update redis QA cache: %v", err)
		}
	}

	var existing model.QACache
	err := m.db.Where("question_hash = ?", hash).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return m.db.Create(&model.QACache{
			QuestionHash: hash,
			Question:     question,
			Answer:       answer,
			LastHitAt:    time.Now(),
		}).Error
	}
	if err != nil {
		return err
	}

	return m.db.Model(&existing).Update("answer", answer).Error
}

// questionHash 问题内容的 sha256 哈希
func questionHash(question string) string {
	h := sha256.Sum256([]byte(question))
	return fmt.Sprintf("%x", h)
}
