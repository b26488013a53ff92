package rag

import (
	"context"
	"fmt"
	"strings"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/yujm888/finrag/internal/llm"
)

// historyWindow 重写时参考的历史消息条数
const historyWindow = 4

// Rewriter 查询重写器,将依赖上下文的对话式问题改写为独立完整的查询
type Rewriter struct {
	completer llm.Completer
}

// NewRewriter 创建查询重写器
func NewRewriter(completer llm.Completer) *Rewriter {
	return &Rewriter{completer: completer}
}

// Rewrite 根据对话历史重写问题。
// 历史为空时原样返回,不调用模型;模型调用失败时回退为原始问题,
// 重写只是质量增强,绝不是硬依赖。
func (r *Rewriter) Rewrite(ctx context.Context, query string, history []llm.Message) string {
	if len(history) == 0 {
		return query
	}

	logx.Info("Rewriting query with conversation history...")

	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}

	messages := make([]llm.Message, 0, historyWindow+1)
	messages = append(messages, history[start:]...)
	messages = append(messages, llm.Message{
		Role: llm.RoleUser,
		Content: fmt.Sprintf("请根据上述对话历史，将我下面这个可能依赖上下文的问题，"+
			"改写成一个独立的、完整的、对后续处理（搜索引擎或数据库查询）友好的问题。"+
			"请只返回改写后的问题本身，不要加任何多余的解释或前缀。\n\n我的问题是：'%s'", query),
	})

	rewritten, err := r.completer.Complete(ctx, messages, llm.Options{Temperature: 0})
	if err != nil {
		logx.Error("Query rewrite failed: %v, falling back to original query", err)
		return query
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return query
	}

	logx.Info("Query rewritten: '%s' -> '%s'", query, rewritten)
	return rewritten
}
