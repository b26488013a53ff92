package textsql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yujm888/finrag/internal/llm"
	"github.com/yujm888/finrag/internal/rag"
)

// scriptedCompleter 测试用模型客户端,按调用顺序返回预设回复
type scriptedCompleter struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []llm.Message, _ llm.Options) (string, error) {
	idx := s.calls
	s.calls++
	s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	if idx < len(s.errs) && s.errs[idx] != nil {
		return "", s.errs[idx]
	}
	if idx < len(s.replies) {
		return s.replies[idx], nil
	}
	return "", errors.New("unexpected completer call")
}

// fakeSchemaProvider 测试用表结构提供者
type fakeSchemaProvider struct {
	schema string
	err    error
	calls  int
}

func (f *fakeSchemaProvider) GetSchema(_ context.Context) (string, error) {
	f.calls++
	return f.schema, f.err
}

// fakeExecutor 测试用执行器,按调用顺序返回预设结果
type fakeExecutor struct {
	rows  []*Rows
	errs  []error
	calls int
	sqls  []string
}

func (f *fakeExecutor) Execute(_ context.Context, sql string) (*Rows, error) {
	idx := f.calls
	f.calls++
	f.sqls = append(f.sqls, sql)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.rows) {
		return f.rows[idx], nil
	}
	return &Rows{}, nil
}

const testSchema = "CREATE TABLE regulatory_documents (\n    doc_id INTEGER, -- 文档ID\n    doc_name TEXT -- 文档名称\n);"

func newTestEngine(provider *fakeSchemaProvider, completer *scriptedCompleter, executor *fakeExecutor) *Engine {
	// 重写器的模型永远不会被调用: 所有测试都用空历史
	rewriter := rag.NewRewriter(&scriptedCompleter{})
	return NewEngine(provider, completer, rewriter, executor, "SQLite", 2)
}

func TestEngine_Run(t *testing.T) {
	t.Run("successful query returns rows", func(t *testing.T) {
		provider := &fakeSchemaProvider{schema: testSchema}
		completer := &scriptedCompleter{replies: []string{"SELECT doc_name FROM regulatory_documents;"}}
		executor := &fakeExecutor{rows: []*Rows{{
			Columns: []string{"doc_name"},
			Records: []map[string]any{{"doc_name": "资管新规"}},
		}}}

		result := newTestEngine(provider, completer, executor).Run(context.Background(), "有哪些监管文件？", nil)
		require.NotNil(t, result)
		assert.Equal(t, TypeDatabaseResult, result.Type)
		require.NotNil(t, result.Rows)
		assert.Equal(t, "资管新规", result.Rows.Records[0]["doc_name"])
		assert.Equal(t, "SELECT doc_name FROM regulatory_documents;", result.GeneratedSQL)
		assert.Equal(t, 1, executor.calls)
	})

	t.Run("empty result set becomes no-records answer", func(t *testing.T) {
		provider := &fakeSchemaProvider{schema: testSchema}
		completer := &scriptedCompleter{replies: []string{"SELECT * FROM regulatory_documents WHERE doc_id = 999;"}}
		executor := &fakeExecutor{rows: []*Rows{{Columns: []string{"doc_id"}}}}

		result := newTestEngine(provider, completer, executor).Run(context.Background(), "查不存在的文件", nil)
		assert.Equal(t, TypeDatabaseResult, result.Type)
		assert.Equal(t, "查询成功，但未找到相关记录。", result.Answer)
		assert.Nil(t, result.Rows)
	})

	t.Run("schema question answered without SQL", func(t *testing.T) {
		provider := &fakeSchemaProvider{schema: testSchema}
		completer := &scriptedCompleter{replies: []string{"regulatory_documents 表的主键是 doc_id。"}}
		executor := &fakeExecutor{}

		result := newTestEngine(provider, completer, executor).Run(context.Background(), "这个表的主键是什么？", nil)
		assert.Equal(t, TypeNaturalLanguageAnswer, result.Type)
		assert.Equal(t, "regulatory_documents 表的主键是 doc_id。", result.Answer)
		assert.Zero(t, executor.calls)
	})

	t.Run("fullwidth punctuation normalized before execution", func(t *testing.T) {
		provider := &fakeSchemaProvider{schema: testSchema}
		completer := &scriptedCompleter{replies: []string{"SELECT count（*） FROM regulatory_documents；"}}
		executor := &fakeExecutor{rows: []*Rows{{
			Columns: []string{"count(*)"},
			Records: []map[string]any{{"count(*)": int64(3)}},
		}}}

		result := newTestEngine(provider, completer, executor).Run(context.Background(), "有多少份文件？", nil)
		assert.Equal(t, TypeDatabaseResult, result.Type)
		require.Len(t, executor.sqls, 1)
		assert.Equal(t, "SELECT count(*) FROM regulatory_documents;", executor.sqls[0])
	})

	t.Run("forbidden statement never reaches the executor", func(t *testing.T) {
		provider := &fakeSchemaProvider{schema: testSchema}
		completer := &scriptedCompleter{replies: []string{"SELECT 1; DELETE FROM regulatory_documents;"}}
		executor := &fakeExecutor{}

		result := newTestEngine(provider, completer, executor).Run(context.Background(), "删掉所有文件", nil)
		assert.Equal(t, TypeError, result.Type)
		assert.Equal(t, "生成的查询包含不允许的操作。", result.Answer)
		assert.Zero(t, executor.calls)
	})

	t.Run("failed SQL is repaired and retried once", func(t *testing.T) {
		provider := &fakeSchemaProvider{schema: testSchema}
		completer := &scriptedCompleter{replies: []string{
			"SELECT doc_nam FROM regulatory_documents;",
			"SELECT doc_name FROM regulatory_documents;",
		}}
		executor := &fakeExecutor{
			errs: []error{errors.New("no such column: doc_nam"), nil},
			rows: []*Rows{nil, {
				Columns: []string{"doc_name"},
				Records: []map[string]any{{"doc_name": "资管新规"}},
			}},
		}

		result := newTestEngine(provider, completer, executor).Run(context.Background(), "有哪些监管文件？", nil)
		assert.Equal(t, TypeDatabaseResult, result.Type)
		assert.Equal(t, "SELECT doc_name FROM regulatory_documents;", result.GeneratedSQL)
		assert.Equal(t, 2, executor.calls)
		// 一次初始生成 + 一次修正
		assert.Equal(t, 2, completer.calls)
		assert.Contains(t, completer.prompts[1], "no such column: doc_nam")
		assert.Contains(t, completer.prompts[1], "SELECT doc_nam FROM regulatory_documents;")
	})

	t.Run("retry budget bounds executor calls", func(t *testing.T) {
		provider := &fakeSchemaProvider{schema: testSchema}
		completer := &scriptedCompleter{replies: []string{
			"SELECT bad FROM regulatory_documents;",
			"SELECT still_bad FROM regulatory_documents;",
		}}
		executor := &fakeExecutor{errs: []error{
			errors.New("no such column: bad"),
			errors.New("no such column: still_bad"),
		}}

		result := newTestEngine(provider, completer, executor).Run(context.Background(), "有哪些监管文件？", nil)
		assert.Equal(t, TypeDatabaseError, result.Type)
		assert.Contains(t, result.Error, "已达最大重试次数")
		assert.Contains(t, result.Error, "no such column: still_bad")
		assert.Equal(t, 2, executor.calls)
		assert.Equal(t, 2, completer.calls)
	})

	t.Run("repair model failure surfaces database error", func(t *testing.T) {
		provider := &fakeSchemaProvider{schema: testSchema}
		completer := &scriptedCompleter{
			replies: []string{"SELECT bad FROM regulatory_documents;"},
			errs:    []error{nil, errors.New("llm unavailable")},
		}
		executor := &fakeExecutor{errs: []error{errors.New("no such column: bad")}}

		result := newTestEngine(provider, completer, executor).Run(context.Background(), "有哪些监管文件？", nil)
		assert.Equal(t, TypeDatabaseError, result.Type)
		assert.Contains(t, result.Error, "自动修正失败")
		assert.Equal(t, 1, executor.calls)
	})

	t.Run("schema failure is a terminal error", func(t *testing.T) {
		provider := &fakeSchemaProvider{err: errors.New("database offline")}
		completer := &scriptedCompleter{}
		executor := &fakeExecutor{}

		result := newTestEngine(provider, completer, executor).Run(context.Background(), "有哪些监管文件？", nil)
		assert.Equal(t, TypeError, result.Type)
		assert.Zero(t, completer.calls)
		assert.Zero(t, executor.calls)
	})

	t.Run("schema changes are visible on the next run", func(t *testing.T) {
		provider := &fakeSchemaProvider{schema: testSchema}
		completer := &scriptedCompleter{replies: []string{
			"表结构问题的回答一。",
			"表结构问题的回答二。",
		}}
		engine := newTestEngine(provider, completer, &fakeExecutor{})

		engine.Run(context.Background(), "主键是什么？", nil)
		// 表结构在两次查询之间发生变化(对应缓存被手动刷新)
		provider.schema = "CREATE TABLE financial_products (\n    product_id INTEGER -- 产品ID\n);"
		engine.Run(context.Background(), "有哪些列？", nil)

		assert.Equal(t, 2, provider.calls)
		require.Len(t, completer.prompts, 2)
		assert.Contains(t, completer.prompts[0], "regulatory_documents")
		assert.Contains(t, completer.prompts[1], "financial_products")
	})

	t.Run("initial generation failure", func(t *testing.T) {
		provider := &fakeSchemaProvider{schema: testSchema}
		completer := &scriptedCompleter{errs: []error{errors.New("llm unavailable")}}
		executor := &fakeExecutor{}

		result := newTestEngine(provider, completer, executor).Run(context.Background(), "有哪些监管文件？", nil)
		assert.Equal(t, TypeError, result.Type)
		assert.Zero(t, executor.calls)
	})
}
