package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yujm888/finrag/internal/llm"
)

// fakeCompleter 测试用模型客户端,记录收到的消息
type fakeCompleter struct {
	reply    string
	err      error
	calls    int
	received [][]llm.Message
	options  []llm.Options
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	f.calls++
	f.received = append(f.received, messages)
	f.options = append(f.options, opts)
	return f.reply, f.err
}

func TestRewriter_Rewrite(t *testing.T) {
	t.Run("empty history skips the model", func(t *testing.T) {
		completer := &fakeCompleter{reply: "不应该被调用"}
		rewriter := NewRewriter(completer)

		got := rewriter.Rewrite(context.Background(), "监管文件有哪些？", nil)
		assert.Equal(t, "监管文件有哪些？", got)
		assert.Zero(t, completer.calls)
	})

	t.Run("rewrites with history", func(t *testing.T) {
		completer := &fakeCompleter{reply: "《资管新规》对银行理财有什么要求？"}
		rewriter := NewRewriter(completer)
		history := []llm.Message{
			{Role: llm.RoleUser, Content: "介绍一下资管新规"},
			{Role: llm.RoleAssistant, Content: "资管新规是..."},
		}

		got := rewriter.Rewrite(context.Background(), "它对银行理财有什么要求？", history)
		assert.Equal(t, "《资管新规》对银行理财有什么要求？", got)
		assert.Equal(t, 1, completer.calls)
		require.Len(t, completer.received, 1)
		// 历史消息 + 改写指令
		assert.Len(t, completer.received[0], 3)
		assert.Contains(t, completer.received[0][2].Content, "它对银行理财有什么要求？")
	})

	t.Run("only the last four history messages are sent", func(t *testing.T) {
		completer := &fakeCompleter{reply: "改写结果"}
		rewriter := NewRewriter(completer)
		history := []llm.Message{
			{Role: llm.RoleUser, Content: "第一条"},
			{Role: llm.RoleAssistant, Content: "第二条"},
			{Role: llm.RoleUser, Content: "第三条"},
			{Role: llm.RoleAssistant, Content: "第四条"},
			{Role: llm.RoleUser, Content: "第五条"},
			{Role: llm.RoleAssistant, Content: "第六条"},
		}

		rewriter.Rewrite(context.Background(), "后续问题", history)
		require.Len(t, completer.received, 1)
		messages := completer.received[0]
		require.Len(t, messages, 5)
		assert.Equal(t, "第三条", messages[0].Content)
		assert.Equal(t, "第六条", messages[3].Content)
	})

	t.Run("model failure falls back to the original query", func(t *testing.T) {
		completer := &fakeCompleter{err: errors.New("llm unavailable")}
		rewriter := NewRewriter(completer)
		history := []llm.Message{{Role: llm.RoleUser, Content: "之前的问题"}}

		got := rewriter.Rewrite(context.Background(), "现在的问题", history)
		assert.Equal(t, "现在的问题", got)
	})

	t.Run("blank rewrite falls back to the original query", func(t *testing.T) {
		completer := &fakeCompleter{reply: "  \n "}
		rewriter := NewRewriter(completer)
		history := []llm.Message{{Role: llm.RoleUser, Content: "之前的问题"}}

		got := rewriter.Rewrite(context.Background(), "现在的问题", history)
		assert.Equal(t, "现在的问题", got)
	})
}
