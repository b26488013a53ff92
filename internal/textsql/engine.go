package textsql

import (
	"context"
	"fmt"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/yujm888/finrag/internal/llm"
	"github.com/yujm888/finrag/internal/rag"
	"github.com/yujm888/finrag/internal/schema"
)

// noRecordsMessage 查询成功但结果集为空时的标记文案
const noRecordsMessage = "查询成功，但未找到相关记录。"

// SchemaProvider 表结构文本提供者
type SchemaProvider interface {
	GetSchema(ctx context.Context) (string, error)
}

var _ SchemaProvider = (*schema.Cached)(nil)

// Engine Text-to-SQL 引擎,编排 改写 -> 生成 -> 校验 -> 执行 -> 纠错重试
type Engine struct {
	schemaProvider SchemaProvider
	completer      llm.Completer
	rewriter       *rag.Rewriter
	executor       Executor
	// dialect 提示词中声明的 SQL 方言,如 SQLite / MySQL
	dialect    string
	maxRetries int
}

// NewEngine 创建 Text-to-SQL 引擎
func NewEngine(schemaProvider SchemaProvider, completer llm.Completer, rewriter *rag.Rewriter,
	executor Executor, dialect string, maxRetries int) *Engine {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &Engine{
		schemaProvider: schemaProvider,
		completer:      completer,
		rewriter:       rewriter,
		executor:       executor,
		dialect:        dialect,
		maxRetries:     maxRetries,
	}
}

// generateInitial 单次调用完成双重意图判断:
// 问表结构 -> 直接依据 schema 回答;问表内容 -> 生成一条以分号结尾的 SELECT。
// 拆成两次调用会多一轮往返,这里刻意合并
func (e *Engine) generateInitial(ctx context.Context, standaloneQuery, schemaText string) (string, error) {
	prompt := fmt.Sprintf(`你是一个双重角色的 %s 数据库专家：一个 Schema 解答器 和一个 SQL 生成器。

# 核心规则：
1.  **角色判断**: 首先仔细判断用户的【问题】意图。
    * **意图 A (描述表结构)**: 用户明确想知道表的【结构信息】，比如表的主键、有哪些列、列的含义、注释等。
    * **意图 B (查询表内容)**: 用户想知道表里面【有什么数据】。这是最常见的意图。

2.  **执行逻辑**:
    * 如果判断为 **意图 A**，你**必须直接根据下面提供的【数据库表结构】来回答问题**，绝对不要生成 SQL。
    * 如果判断为 **意图 B**，你**必须将问题转换成一条精确的 %s SQL 查询语句**。

3.  **SQL 生成要求 (仅当执行意图 B 时)**:
    * **格式要求（极其重要）**: 所有标点符号都必须使用半角（ASCII/英文）格式。
    * **安全要求**: 只能生成只读的 `+"`SELECT`"+` 查询。
    * **输出要求**: 绝对只返回 SQL 查询语句本身，并以分号 `+"`;`"+` 结尾。

# 数据库表结构 (DDL Schema):
---
%s
---

# 用户问题:
%s

# 你的回答 (根据意图判断，直接回答或生成 SQL):`, e.dialect, e.dialect, schemaText, standaloneQuery)

	logx.Info("Generating initial SQL with LLM...")
	return e.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.Options{Temperature: 0})
}

// fixSQL 将失败的 SQL 与数据库错误信息回传给模型,要求其修正
func (e *Engine) fixSQL(ctx context.Context, standaloneQuery, wrongSQL, errorMessage, schemaText string) (string, error) {
	prompt := fmt.Sprintf(`你是一个 %s 数据库专家，你的任务是修复一条有错误的 SQL 查询。

# 背景信息:
* **原始用户问题**: "%s"
* **我尝试执行的错误SQL**:
    `+"```sql\n    %s\n    ```"+`
* **数据库返回的错误信息**: "%s"

# 你的任务:
1.  仔细分析上面的【错误信息】和【错误SQL】。
2.  根据【原始用户问题】的意图，重新生成一条**正确**的 %s SQL 查询。
3.  **输出要求**: 绝对只返回修正后的 SQL 查询语句本身，并以分号 `+"`;`"+` 结尾。不要包含任何解释。

# 数据库表结构 (DDL Schema) 供你参考:
---
%s
---

# 你修正后的 SQL:`, e.dialect, standaloneQuery, wrongSQL, errorMessage, e.dialect, schemaText)

	logx.Warn("SQL execution failed, asking LLM to fix. Error: %s", errorMessage)
	return e.completer.Complete(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.Options{Temperature: 0})
}

// Run 执行完整的 Text-to-SQL 流程,含有界的自我纠错重试。
// 所有失败都转换为结构化结果返回,不向调用方抛错
func (e *Engine) Run(ctx context.Context, query string, history []llm.Message) *Result {
	// 每次流程都向提供者要表结构,文件缓存被清除后下一次查询即可拿到新结构
	schemaText, err := e.schemaProvider.GetSchema(ctx)
	if err != nil {
		logx.Error("Failed to load database schema: %v", err)
		return &Result{Type: TypeError, Answer: "抱歉，无法获取数据库表结构。"}
	}

	standaloneQuery := e.rewriter.Rewrite(ctx, query, history)

	response, err := e.generateInitial(ctx, standaloneQuery, schemaText)
	if err != nil {
		logx.Error("Failed to generate initial SQL: %v", err)
		return &Result{Type: TypeError, Answer: "抱歉，无法处理您的问题。"}
	}

	var generatedSQL string

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		clean := NormalizePunctuation(response)

		if !IsSQLShaped(clean) {
			// 模型判断为表结构问题并直接作答
			return &Result{Type: TypeNaturalLanguageAnswer, Answer: clean}
		}

		// 校验失败是终态,绝不重试也绝不执行
		if !ValidateSQL(clean) {
			return &Result{Type: TypeError, Answer: "生成的查询包含不允许的操作。"}
		}

		generatedSQL = clean
		logx.Info("Executing SQL (attempt %d): %s", attempt+1, generatedSQL)

		rows, execErr := e.executor.Execute(ctx, generatedSQL)
		if execErr == nil {
			result := &Result{Type: TypeDatabaseResult, Rows: rows, GeneratedSQL: generatedSQL}
			if len(rows.Records) == 0 {
				result.Rows = nil
				result.Answer = noRecordsMessage
			}
			return result
		}

		errorMessage := execErr.Error()
		logx.Warn("SQL execution failed: %s", errorMessage)

		if attempt >= e.maxRetries-1 {
			return &Result{
				Type:         TypeDatabaseError,
				Error:        fmt.Sprintf("执行数据库查询时遇到问题，已达最大重试次数: %s", errorMessage),
				GeneratedSQL: generatedSQL,
			}
		}

		response, err = e.fixSQL(ctx, standaloneQuery, generatedSQL, errorMessage, schemaText)
		if err != nil {
			logx.Error("Failed to fix SQL with LLM: %v", err)
			return &Result{
				Type:         TypeDatabaseError,
				Error:        fmt.Sprintf("执行数据库查询时遇到问题，且自动修正失败: %s", errorMessage),
				GeneratedSQL: generatedSQL,
			}
		}
	}

	return &Result{Type: TypeError, Error: "未知错误，流程意外终止。", GeneratedSQL: generatedSQL}
}
