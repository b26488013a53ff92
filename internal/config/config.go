package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用全局配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Reranker  RerankerConfig  `mapstructure:"reranker"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	RAG       RAGConfig       `mapstructure:"rag"`
	TextSQL   TextSQLConfig   `mapstructure:"textsql"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`
}

// LLMConfig 大模型配置 (OpenAI 兼容接口)
type LLMConfig struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// EmbeddingConfig 向量嵌入配置
type EmbeddingConfig struct {
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// RerankerConfig 重排序服务配置
type RerankerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// KnowledgeConfig 知识库文件配置
type KnowledgeConfig struct {
	IndexPath  string `mapstructure:"index_path"`
	ChunksPath string `mapstructure:"chunks_path"`
}

// RAGConfig RAG 流程配置
type RAGConfig struct {
	TopK            int `mapstructure:"top_k"`
	MaxContextChars int `mapstructure:"max_context_chars"`
}

// TextSQLConfig Text-to-SQL 配置
type TextSQLConfig struct {
	MaxRetries      int    `mapstructure:"max_retries"`
	SchemaCachePath string `mapstructure:"schema_cache_path"`
}

// DatabaseConfig 业务数据库配置
type DatabaseConfig struct {
	// Driver 支持 sqlite | mysql
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// MemoryDSN 会话记忆库(默认与业务库分离的 sqlite 文件)
	MemoryDSN string `mapstructure:"memory_dsn"`
}

// RedisConfig Redis 缓存配置(可选)
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoadConfig 从 YAML 文件加载配置,支持 FINRAG_ 前缀的环境变量覆盖
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.finrag")
		v.AddConfigPath("/etc/finrag")
	}

	v.SetEnvPrefix("FINRAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 找不到配置文件时使用默认配置,其余错误直接返回
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8216)
	v.SetDefault("server.debug", false)

	v.SetDefault("llm.model", "qwen-plus")
	v.SetDefault("embedding.model", "text-embedding-v3")

	v.SetDefault("reranker.enabled", true)
	v.SetDefault("reranker.model", "gte-rerank")

	v.SetDefault("knowledge.index_path", "./knowledge_base/generated/knowledge.index")
	v.SetDefault("knowledge.chunks_path", "./knowledge_base/generated/knowledge.json")

	v.SetDefault("rag.top_k", 5)
	v.SetDefault("rag.max_context_chars", 8000)

	v.SetDefault("textsql.max_retries", 2)
	v.SetDefault("textsql.schema_cache_path", "./data/schema_cache.sql")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/finance_reg.db")
	v.SetDefault("database.memory_dsn", "./data/finrag.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
}

// Validate 启动时校验关键配置,缺失则直接失败
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" || c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.api_key and llm.base_url are required")
	}
	if c.Embedding.APIKey == "" {
		// 嵌入服务默认复用 LLM 的凭证
		c.Embedding.APIKey = c.LLM.APIKey
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
	if c.Reranker.Enabled && c.Reranker.BaseURL == "" {
		c.Reranker.BaseURL = c.LLM.BaseURL
	}
	if c.Reranker.Enabled && c.Reranker.APIKey == "" {
		c.Reranker.APIKey = c.LLM.APIKey
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.TextSQL.MaxRetries <= 0 {
		c.TextSQL.MaxRetries = 2
	}
	return nil
}
