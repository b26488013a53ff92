package schema

import (
	"fmt"
	"strings"
)

// Column 单列的结构信息,从各后端的元数据查询中归一而来
type Column struct {
	Table        string
	TableComment string
	Name         string
	Type         string
	Comment      string
}

// renderDDL 将列信息按表分组,渲染为带行内注释的 CREATE TABLE 风格文本。
// 这种格式同时给模型提供了结构和语义,比裸列名列表的生成准确率更高。
func renderDDL(columns []Column) string {
	type tableData struct {
		comment string
		columns []Column
	}

	var order []string
	tables := make(map[string]*tableData)

	for _, col := range columns {
		data, ok := tables[col.Table]
		if !ok {
			data = &tableData{comment: col.TableComment}
			tables[col.Table] = data
			order = append(order, col.Table)
		}
		if data.comment == "" {
			data.comment = col.TableComment
		}
		data.columns = append(data.columns, col)
	}

	var parts []string
	for _, tableName := range order {
		data := tables[tableName]

		var builder strings.Builder
		builder.WriteString(fmt.Sprintf("CREATE TABLE %s (\n", tableName))

		colDefs := make([]string, 0, len(data.columns))
		for _, col := range data.columns {
			def := fmt.Sprintf("    %s %s", col.Name, col.Type)
			if col.Comment != "" {
				def += fmt.Sprintf(", -- %s", col.Comment)
			}
			colDefs = append(colDefs, def)
		}
		builder.WriteString(strings.Join(colDefs, ",\n"))
		builder.WriteString("\n);")

		if data.comment != "" {
			builder.WriteString(fmt.Sprintf(" -- %s", data.comment))
		}

		parts = append(parts, builder.String())
	}

	return strings.Join(parts, "\n\n")
}
