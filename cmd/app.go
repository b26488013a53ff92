package cmd

import (
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"gorm.io/gorm"

	"github.com/yujm888/finrag/internal/config"
	"github.com/yujm888/finrag/internal/database"
	"github.com/yujm888/finrag/internal/embedding"
	"github.com/yujm888/finrag/internal/hybrid"
	"github.com/yujm888/finrag/internal/knowledge"
	"github.com/yujm888/finrag/internal/llm"
	"github.com/yujm888/finrag/internal/memory"
	"github.com/yujm888/finrag/internal/rag"
	"github.com/yujm888/finrag/internal/schema"
	"github.com/yujm888/finrag/internal/textsql"
)

// app 组合根,按依赖顺序(先叶子后编排)构建全部组件,
// 所有依赖都通过构造参数显式传入
type app struct {
	cfg         *config.Config
	ragPipeline *rag.Pipeline
	sqlEngine   *textsql.Engine
	hybridEng   *hybrid.Engine
	memoryMgr   *memory.Manager
	schemaCache *schema.Cached
	businessDB  *gorm.DB
	memoryDB    *gorm.DB
}

// buildApp 构建应用
func buildApp(cfg *config.Config) (*app, error) {
	// Redis 可选,连不上只告警不阻断
	var redisCache *memory.RedisCache
	if cfg.Redis.Enabled {
		var err error
		redisCache, err = memory.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, 24*time.Hour)
		if err != nil {
			logx.Warn("Redis unavailable, caching disabled: %v", err)
			redisCache = nil
		}
	}

	completer := llm.NewClient(&llm.Config{
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	})

	embedder := embedding.NewService(&embedding.Config{
		Model:   cfg.Embedding.Model,
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
	}, redisCache)

	// 重排序器加载失败不致命,搜索引擎降级为融合模式
	var reranker knowledge.Scorer
	if cfg.Reranker.Enabled {
		r, err := knowledge.NewReranker(&knowledge.RerankerConfig{
			Model:   cfg.Reranker.Model,
			APIKey:  cfg.Reranker.APIKey,
			BaseURL: cfg.Reranker.BaseURL,
		})
		if err != nil {
			logx.Warn("Failed to initialize reranker, fusion-only mode: %v", err)
		} else {
			reranker = r
		}
	}

	searchEngine := knowledge.NewSearchEngine(cfg.Knowledge.IndexPath, cfg.Knowledge.ChunksPath, embedder, reranker)

	rewriter := rag.NewRewriter(completer)
	assembler := rag.NewAssembler(cfg.RAG.MaxContextChars)
	ragPipeline := rag.NewPipeline(searchEngine, rewriter, assembler, completer, cfg.RAG.TopK)

	businessDB, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	var fetcher schema.Fetcher
	var dialect string
	switch cfg.Database.Driver {
	case "mysql":
		fetcher = schema.NewMySQLFetcher(businessDB)
		dialect = "MySQL"
	default:
		fetcher = schema.NewSQLiteFetcher(businessDB)
		dialect = "SQLite"
	}
	schemaCache := schema.NewCached(fetcher, cfg.TextSQL.SchemaCachePath)

	executor := textsql.NewGormExecutor(businessDB)
	sqlEngine := textsql.NewEngine(schemaCache, completer, rewriter, executor, dialect, cfg.TextSQL.MaxRetries)

	router := hybrid.NewRouter(completer)
	hybridEng := hybrid.NewEngine(router, ragPipeline, sqlEngine)

	memoryDB, err := database.Open("sqlite", cfg.Database.MemoryDSN)
	if err != nil {
		return nil, err
	}
	memoryMgr, err := memory.NewManager(memoryDB, redisCache)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:         cfg,
		ragPipeline: ragPipeline,
		sqlEngine:   sqlEngine,
		hybridEng:   hybridEng,
		memoryMgr:   memoryMgr,
		schemaCache: schemaCache,
		businessDB:  businessDB,
		memoryDB:    memoryDB,
	}, nil
}

// close 释放持有的连接
func (a *app) close() {
	if err := database.Close(a.businessDB); err != nil {
		logx.Warn("Failed to close business database: %v", err)
	}
	if err := database.Close(a.memoryDB); err != nil {
		logx.Warn("Failed to close memory database: %v", err)
	}
}
