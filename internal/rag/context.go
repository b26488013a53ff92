package rag

import (
	"strings"
	"unicode/utf8"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/yujm888/finrag/internal/knowledge"
)

// contextDelimiter 知识块之间的分隔符
const contextDelimiter = "\n---\n"

// Assembler 上下文组装器,将排序后的知识块拼接为限长的上下文字符串,
// 并按 (文档标题, 章节标题) 去重收集引用来源
type Assembler struct {
	maxChars int
}

// NewAssembler 创建上下文组装器,maxChars 为上下文字符数上限
func NewAssembler(maxChars int) *Assembler {
	return &Assembler{maxChars: maxChars}
}

// Assemble 按相关性顺序拼接知识块文本。
// 加入下一个知识块会超出预算时停止,低名次的知识块被整体丢弃,
// 绝不从中间截断;来源列表按首次出现顺序去重。
func (a *Assembler) Assemble(results []knowledge.Result) (string, []knowledge.Source) {
	if len(results) == 0 {
		return "没有提供任何上下文。", nil
	}

	var parts []string
	var sources []knowledge.Source
	seen := make(map[knowledge.Source]struct{})
	currentLen := 0

	for _, result := range results {
		textLen := utf8.RuneCountInString(result.Chunk.Text)
		if currentLen+textLen > a.maxChars {
			logx.Warn("Context reached the %d character budget, truncated", a.maxChars)
			break
		}

		parts = append(parts, result.Chunk.Text)
		currentLen += textLen

		source := knowledge.Source{
			DocTitle:     result.Chunk.Metadata.DocTitle,
			ChapterTitle: result.Chunk.Metadata.ChapterTitle,
		}
		if source.DocTitle == "" {
			source.DocTitle = "未知文档"
		}
		if source.ChapterTitle == "" {
			source.ChapterTitle = "无章节"
		}
		if _, ok := seen[source]; !ok {
			seen[source] = struct{}{}
			sources = append(sources, source)
		}
	}

	return strings.Join(parts, contextDelimiter), sources
}
