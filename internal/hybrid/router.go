package hybrid

import (
	"context"
	"encoding/json"
	"fmt"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/yujm888/finrag/internal/llm"
)

// 可用工具
const (
	ToolRAGSearch = "rag_search"
	ToolTextToSQL = "text_to_sql"
)

// decision 路由决策的结构化输出
type decision struct {
	Tool   string `json:"tool"`
	Reason string `json:"reason"`
}

// Router 意图路由器,用一次 LLM 调用判断问题该走文档检索还是数据库查询。
// 意图判断本质上是主观的,这里用少样本示例而非规则驱动
type Router struct {
	completer llm.Completer
}

// NewRouter 创建路由器
func NewRouter(completer llm.Completer) *Router {
	return &Router{completer: completer}
}

// Route 对问题分类。输出格式错误或调用失败时默认走 rag_search:
// 文档检索不会改动数据,最坏情况也只是"未找到答案",是更安全的回退
func (r *Router) Route(ctx context.Context, query string) string {
	prompt := fmt.Sprintf(`你是一个智能任务路由器。你的任务是根据用户的【问题】，判断应该使用哪个工具来回答。
你必须以严格的 JSON 格式返回你的决定，只包含 "tool" 和 "reason" 两个键。

# 可用工具:
1.  `+"`rag_search`"+`: 用于回答关于金融法规、政策解读、专业概念、应用场景等基于文档内容的【开放式问题】。
2.  `+"`text_to_sql`"+`: 用于从数据库中【精确查询】具体的金融产品信息、监管文件列表、发布机构等。

# 示例:
- 问题: "人工智能在办公领域有哪些应用？" -> `+"`rag_search`"+`
- 问题: "中国人民银行发布了哪些文件？" -> `+"`text_to_sql`"+`
- 问题: "什么是资产管理？" -> `+"`rag_search`"+`
- 问题: "查询所有高风险的金融产品" -> `+"`text_to_sql`"+`

# 用户问题:
"%s"

# 你的 JSON 格式决策:`, query)

	response, err := r.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.Options{Temperature: 0, JSONMode: true})
	if err != nil {
		logx.Error("Router decision failed: %v, defaulting to rag_search", err)
		return ToolRAGSearch
	}

	var d decision
	if err := json.Unmarshal([]byte(response), &d); err != nil {
		logx.Error("Router returned malformed decision: %v, defaulting to rag_search", err)
		return ToolRAGSearch
	}

	switch d.Tool {
	case ToolTextToSQL, ToolRAGSearch:
		logx.Info("Router decision for '%s': %s (reason: %s)", query, d.Tool, d.Reason)
		return d.Tool
	default:
		logx.Warn("Router returned unknown tool '%s', defaulting to rag_search", d.Tool)
		return ToolRAGSearch
	}
}
