package server

import (
	"fmt"
	"strings"

	"github.com/yujm888/finrag/internal/textsql"
)

// renderSQLAnswer 将 Text-to-SQL 结果渲染为展示文本,
// 结果集转为 Markdown 表格
func renderSQLAnswer(result *textsql.Result) string {
	if result == nil {
		return ""
	}

	switch result.Type {
	case textsql.TypeNaturalLanguageAnswer:
		return result.Answer
	case textsql.TypeDatabaseResult:
		if result.Rows == nil {
			return result.Answer
		}
		return renderMarkdownTable(result.Rows)
	case textsql.TypeDatabaseError:
		return fmt.Sprintf("%s\n\n**执行的 SQL**: `%s`", result.Error, result.GeneratedSQL)
	default:
		if result.Answer != "" {
			return result.Answer
		}
		return result.Error
	}
}

// renderMarkdownTable 按列顺序渲染 Markdown 表格
func renderMarkdownTable(rows *textsql.Rows) string {
	var builder strings.Builder

	builder.WriteString("| " + strings.Join(rows.Columns, " | ") + " |\n")

	separators := make([]string, len(rows.Columns))
	for i := range separators {
		separators[i] = "---"
	}
	builder.WriteString("| " + strings.Join(separators, " | ") + " |\n")

	for _, record := range rows.Records {
		cells := make([]string, len(rows.Columns))
		for i, col := range rows.Columns {
			cells[i] = fmt.Sprintf("%v", record[col])
		}
		builder.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	return strings.TrimRight(builder.String(), "\n")
}
