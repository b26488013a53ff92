package rag

import (
	"strings"

	"github.com/yujm888/finrag/internal/llm"
)

// CitationMarker 展示层在回答末尾追加引用列表时使用的标记。
// 历史消息送入模型前必须剥离该标记之后的内容,
// 否则残留的引用文本会污染查询重写和答案生成。
const CitationMarker = "参考来源"

// CleanHistory 返回剥离了引用标记的新历史切片,不修改输入
func CleanHistory(history []llm.Message) []llm.Message {
	if len(history) == 0 {
		return nil
	}

	cleaned := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == llm.RoleAssistant {
			if idx := strings.Index(msg.Content, "\n\n"+CitationMarker); idx >= 0 {
				msg.Content = strings.TrimSpace(msg.Content[:idx])
			}
		}
		cleaned = append(cleaned, msg)
	}
	return cleaned
}
