package textsql

// 结果类型
const (
	TypeDatabaseResult        = "database_result"
	TypeNaturalLanguageAnswer = "natural_language_answer"
	TypeDatabaseError         = "database_error"
	TypeError                 = "error"
)

// Rows 查询结果集,列顺序与记录分开保存,保证字段渲染顺序稳定
type Rows struct {
	Columns []string         `json:"columns"`
	Records []map[string]any `json:"records"`
}

// Result Text-to-SQL 的结构化结果
type Result struct {
	Type         string `json:"type"`
	Answer       string `json:"answer,omitempty"`
	Rows         *Rows  `json:"rows,omitempty"`
	GeneratedSQL string `json:"generated_sql,omitempty"`
	Error        string `json:"error,omitempty"`
}
