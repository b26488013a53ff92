package llm

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"strings"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	openai "github.com/sashabaranov/go-openai"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options 单次调用选项
type Options struct {
	Temperature float32
	// JSONMode 要求模型返回严格 JSON 对象
	JSONMode bool
}

// Completer LLM 对话能力接口,各引擎依赖此接口而非具体客户端
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Config LLM 配置
type Config struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// Client OpenAI 兼容的 LLM 客户端
type Client struct {
	config *Config
	client *openai.Client
}

var _ Completer = (*Client)(nil)

// NewClient 创建 LLM 客户端
func NewClient(config *Config) *Client {
	clientConfig := openai.DefaultConfig(config.APIKey)

	// 直接使用配置的 BaseURL,不自动添加 /v1
	// 不同的 API 提供商路径格式不同,例如 OpenAI 使用 /v1,智普 AI 使用 /api/paas/v4
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
		logx.Debug("LLM client BaseURL: %s", config.BaseURL)
	}

	// 禁用 HTTP/2,强制使用 HTTP/1.1 以避免部分网关的 INTERNAL_ERROR
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSNextProto:        make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
	}

	clientConfig.HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   600 * time.Second,
	}

	client := openai.NewClientWithConfig(clientConfig)

	logx.Info("LLM client initialized, model %s", config.Model)

	return &Client{
		config: config,
		client: client,
	}
}

// Complete 非流式对话,返回模型回复文本
func (c *Client) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	// go-openai 对 Temperature 零值做 omitempty 处理,显式传入一个极小值
	// 才能真正让模型以 0 温度输出
	temperature := opts.Temperature
	if temperature == 0 {
		temperature = 1e-5
	}

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    openaiMessages,
		Temperature: temperature,
		Stream:      false,
	}

	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
