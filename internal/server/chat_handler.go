package server

import (
	"fmt"
	"net/http"
	"strings"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yujm888/finrag/internal/hybrid"
	"github.com/yujm888/finrag/internal/knowledge"
	"github.com/yujm888/finrag/internal/llm"
	"github.com/yujm888/finrag/internal/rag"
	"github.com/yujm888/finrag/internal/textsql"
)

// historyLimit 每次请求加载的历史消息条数上限
const historyLimit = 10

// askRequest 问答请求体
type askRequest struct {
	Query          string `json:"query" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// handleHealth 健康检查
func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleChat 混合问答入口,由路由器决定走文档检索还是数据库查询
func (s *HTTPServer) handleChat(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	conversationID, history := s.loadHistory(req.ConversationID)

	resp := s.hybridEng.Execute(c.Request.Context(), req.Query, history)

	var displayAnswer string
	switch resp.Tool {
	case hybrid.ToolTextToSQL:
		displayAnswer = renderSQLAnswer(resp.SQL)
	default:
		displayAnswer = renderRAGAnswer(resp.RAG)
	}

	s.saveTurn(conversationID, req.Query, displayAnswer)

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conversationID,
		"tool":            resp.Tool,
		"answer":          displayAnswer,
		"result":          resp,
	})
}

// handleRAGAsk RAG 问答
func (s *HTTPServer) handleRAGAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	conversationID, history := s.loadHistory(req.ConversationID)

	// 问答缓存的键只有问题本身,带历史的追问依赖上下文,不读也不写缓存
	if len(history) == 0 {
		if cached, hit := s.memoryMgr.GetCachedAnswer(req.Query); hit {
			logx.Info("QA cache hit, returning cached answer")
			c.JSON(http.StatusOK, gin.H{
				"conversation_id": conversationID,
				"answer":          cached,
				"sources":         []knowledge.Source{},
				"cached":          true,
			})
			return
		}
	}

	answer := s.ragPipeline.Execute(c.Request.Context(), req.Query, history)

	displayAnswer := renderRAGAnswer(answer)
	s.saveTurn(conversationID, req.Query, displayAnswer)
	// 兜底回答是临时故障的产物,缓存它会让故障在恢复后继续被命中
	if !answer.Failed && len(history) == 0 {
		if err := s.memoryMgr.UpdateQACache(req.Query, answer.Answer); err != nil {
			logx.Warn("Failed to update QA cache: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id": conversationID,
		"answer":          answer.Answer,
		"sources":         answer.Sources,
	})
}

// handleSQLAsk Text-to-SQL 问答
func (s *HTTPServer) handleSQLAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	conversationID, history := s.loadHistory(req.ConversationID)

	result := s.sqlEngine.Run(c.Request.Context(), req.Query, history)

	s.saveTurn(conversationID, req.Query, renderSQLAnswer(result))

	status := http.StatusOK
	if result.Type == textsql.TypeError || result.Type == textsql.TypeDatabaseError {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"conversation_id": conversationID,
		"result":          result,
	})
}

// handleSchemaRefresh 清除表结构缓存,下次查询重新提取
func (s *HTTPServer) handleSchemaRefresh(c *gin.Context) {
	if err := s.schemaCache.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "schema cache cleared"})
}

// loadHistory 加载会话历史,无会话 ID 时新建会话
func (s *HTTPServer) loadHistory(conversationID string) (string, []llm.Message) {
	if conversationID == "" {
		return uuid.NewString(), nil
	}

	history, err := s.memoryMgr.GetHistory(conversationID, historyLimit)
	if err != nil {
		logx.Warn("Failed to load conversation history: %v", err)
		return conversationID, nil
	}
	return conversationID, history
}

// saveTurn 持久化一轮问答
func (s *HTTPServer) saveTurn(conversationID, query, answer string) {
	if err := s.memoryMgr.SaveMessage(conversationID, llm.RoleUser, query); err != nil {
		logx.Warn("Failed to save user message: %v", err)
	}
	if err := s.memoryMgr.SaveMessage(conversationID, llm.RoleAssistant, answer); err != nil {
		logx.Warn("Failed to save assistant message: %v", err)
	}
}

// renderRAGAnswer 在答案末尾追加引用列表。
// 该标记在历史消息回流给模型前会被 rag.CleanHistory 剥离
func renderRAGAnswer(answer *rag.Answer) string {
	if answer == nil {
		return ""
	}
	if len(answer.Sources) == 0 {
		return answer.Answer
	}

	var builder strings.Builder
	builder.WriteString(answer.Answer)
	builder.WriteString("\n\n" + rag.CitationMarker + "：")
	for _, source := range answer.Sources {
		builder.WriteString(fmt.Sprintf("\n- 《%s》 %s", source.DocTitle, source.ChapterTitle))
	}
	return builder.String()
}
