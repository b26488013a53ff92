package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yujm888/finrag/internal/textsql"
)

func TestRenderSQLAnswer(t *testing.T) {
	t.Run("rows become a markdown table", func(t *testing.T) {
		result := &textsql.Result{
			Type: textsql.TypeDatabaseResult,
			Rows: &textsql.Rows{
				Columns: []string{"doc_name", "issuing_authority"},
				Records: []map[string]any{
					{"doc_name": "资管新规", "issuing_authority": "中国人民银行"},
					{"doc_name": "理财办法", "issuing_authority": "银保监会"},
				},
			},
		}

		want := "| doc_name | issuing_authority |\n" +
			"| --- | --- |\n" +
			"| 资管新规 | 中国人民银行 |\n" +
			"| 理财办法 | 银保监会 |"
		assert.Equal(t, want, renderSQLAnswer(result))
	})

	t.Run("no records shows the marker answer", func(t *testing.T) {
		result := &textsql.Result{
			Type:   textsql.TypeDatabaseResult,
			Answer: "查询成功，但未找到相关记录。",
		}
		assert.Equal(t, "查询成功，但未找到相关记录。", renderSQLAnswer(result))
	})

	t.Run("natural language answer passes through", func(t *testing.T) {
		result := &textsql.Result{
			Type:   textsql.TypeNaturalLanguageAnswer,
			Answer: "regulatory_documents 表的主键是 doc_id。",
		}
		assert.Equal(t, "regulatory_documents 表的主键是 doc_id。", renderSQLAnswer(result))
	})

	t.Run("database error includes the failing SQL", func(t *testing.T) {
		result := &textsql.Result{
			Type:         textsql.TypeDatabaseError,
			Error:        "执行数据库查询时遇到问题",
			GeneratedSQL: "SELECT bad FROM t;",
		}

		got := renderSQLAnswer(result)
		assert.Contains(t, got, "执行数据库查询时遇到问题")
		assert.Contains(t, got, "SELECT bad FROM t;")
	})

	t.Run("nil result renders empty", func(t *testing.T) {
		assert.Equal(t, "", renderSQLAnswer(nil))
	})
}
