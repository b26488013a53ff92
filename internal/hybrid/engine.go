package hybrid

import (
	"context"

	"github.com/yujm888/finrag/internal/llm"
	"github.com/yujm888/finrag/internal/rag"
	"github.com/yujm888/finrag/internal/textsql"
)

// Response 混合引擎的统一结果,按命中的工具填充对应字段
type Response struct {
	Tool string          `json:"tool"`
	RAG  *rag.Answer     `json:"rag,omitempty"`
	SQL  *textsql.Result `json:"sql,omitempty"`
}

// Engine 混合引擎,路由后分发到 RAG 流程或 Text-to-SQL 引擎
type Engine struct {
	router      *Router
	ragPipeline *rag.Pipeline
	sqlEngine   *textsql.Engine
}

// NewEngine 创建混合引擎
func NewEngine(router *Router, ragPipeline *rag.Pipeline, sqlEngine *textsql.Engine) *Engine {
	return &Engine{
		router:      router,
		ragPipeline: ragPipeline,
		sqlEngine:   sqlEngine,
	}
}

// Execute 路由并执行
func (e *Engine) Execute(ctx context.Context, query string, history []llm.Message) *Response {
	tool := e.router.Route(ctx, query)

	if tool == ToolTextToSQL {
		return &Response{
			Tool: ToolTextToSQL,
			SQL:  e.sqlEngine.Run(ctx, query, history),
		}
	}

	return &Response{
		Tool: ToolRAGSearch,
		RAG:  e.ragPipeline.Execute(ctx, query, history),
	}
}
