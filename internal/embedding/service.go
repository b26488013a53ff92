package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	openai "github.com/sashabaranov/go-openai"
)

// Embedder 向量嵌入能力接口
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}

// Cache embedding 结果缓存接口(可选,由 memory 包的 Redis 层实现)
type Cache interface {
	GetEmbedding(key string) ([]float32, error)
	SetEmbedding(key string, vector []float32) error
}

// Config Embedding 配置
type Config struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Service 向量嵌入服务
type Service struct {
	client *openai.Client
	model  string
	cache  Cache
}

var _ Embedder = (*Service)(nil)

// NewService 创建 Embedding 服务
func NewService(cfg *Config, cache Cache) *Service {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: 30 * time.Second}

	return &Service{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		cache:  cache,
	}
}

// Embed 获取单个文本的向量表示
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	// 换行会影响部分嵌入模型的质量
	text = strings.ReplaceAll(text, "\n", " ")

	if s.cache != nil {
		cacheKey := s.cacheKey(text)
		if cached, err := s.cache.GetEmbedding(cacheKey); err == nil && cached != nil {
			logx.Debug("Embedding cache hit, key %s", cacheKey[:16])
			return cached, nil
		}
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response is empty")
	}

	vector := resp.Data[0].Embedding

	if s.cache != nil {
		if err := s.cache.SetEmbedding(s.cacheKey(text), vector); err != nil {
			logx.Warn("Failed to cache embedding: %v", err)
		}
	}

	return vector, nil
}

// GetModel 返回当前模型标识
func (s *Service) GetModel() string {
	return s.model
}

// cacheKey 以模型+文本内容哈希作为缓存键
func (s *Service) cacheKey(text string) string {
	h := sha256.Sum256([]byte(s.model + ":" + text))
	return fmt.Sprintf("emb:%x", h)
}
