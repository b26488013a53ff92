package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/yujm888/finrag/internal/knowledge"
	"github.com/yujm888/finrag/internal/llm"
)

// systemPrompt 约束模型严格依据上下文作答,信息不足时明确告知,
// 并禁止输出引用文本(引用由程序在外部追加)
const systemPrompt = `你是一个专业的金融监管信息整合专家。你的任务是严格根据【原始上下文】中的内容，精准、简洁地回答用户的【问题】。

# 核心规则
1. **绝对忠诚于原文**: 你的回答必须完全基于【原始上下文】提供的信息，禁止进行任何形式的推理、联想或使用外部知识。
2. **极致纯净的答案**: 你的回答**必须只直接回答用户的问题核心，必须只包含问题核心**。绝对禁止输出参考文档等类似信息，这些信息将由程序在外部自动添加。
3. **信息不足则明确告知**: 如果【原始上下文】中的信息不足以回答【问题】，你必须明确回答："根据现有资料，无法回答该问题。"`

// fallbackAnswer 模型调用失败时返回的兜底回答
const fallbackAnswer = "抱歉，生成答案时遇到了内部问题。"

// sourcePattern 匹配模型无视指令仍附加的来源说明句,生成后统一剥离
var sourcePattern = regexp.MustCompile(`\n?(以上信息来源于文件|来源|资料来源)[：:].*`)

// Searcher 检索能力接口
type Searcher interface {
	Search(ctx context.Context, query string, k int) []knowledge.Result
}

// Answer RAG 回答结果
type Answer struct {
	Answer  string             `json:"answer"`
	Sources []knowledge.Source `json:"sources"`
	// Failed 标记兜底回答,这类回答不代表知识库内容,不应进入问答缓存
	Failed bool `json:"-"`
}

// Pipeline RAG 流程编排: 查询重写 -> 混合检索 -> 上下文组装 -> 答案生成 -> 引用清理
type Pipeline struct {
	searcher  Searcher
	rewriter  *Rewriter
	assembler *Assembler
	completer llm.Completer
	topK      int
}

// NewPipeline 创建 RAG 流程
func NewPipeline(searcher Searcher, rewriter *Rewriter, assembler *Assembler, completer llm.Completer, topK int) *Pipeline {
	if topK <= 0 {
		topK = 5
	}
	return &Pipeline{
		searcher:  searcher,
		rewriter:  rewriter,
		assembler: assembler,
		completer: completer,
		topK:      topK,
	}
}

// Execute 执行完整的 RAG 流程。
// 检索使用重写后的问题,最终提问仍使用原始问题;
// 模型调用失败时返回兜底回答,不向调用方抛错。
func (p *Pipeline) Execute(ctx context.Context, query string, history []llm.Message) *Answer {
	history = CleanHistory(history)

	rewritten := p.rewriter.Rewrite(ctx, query, history)
	results := p.searcher.Search(ctx, rewritten, p.topK)

	contextStr, sources := p.assembler.Assemble(results)

	taskPrompt := fmt.Sprintf("# 原始上下文\n---\n%s\n---\n\n# 问题\n%s", contextStr, query)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: taskPrompt})

	logx.Info("Generating final answer with %d context chunks...", len(results))
	rawAnswer, err := p.completer.Complete(ctx, messages, llm.Options{Temperature: 0})
	if err != nil {
		logx.Error("Failed to generate answer: %v", err)
		return &Answer{Answer: fallbackAnswer, Sources: nil, Failed: true}
	}

	cleaned := strings.TrimSpace(sourcePattern.ReplaceAllString(rawAnswer, ""))

	return &Answer{Answer: cleaned, Sources: sources}
}
