package textsql

import (
	"strings"

	"cnb.cool/zhiqiangwang/pkg/logx"
)

// forbiddenKeywords 一律拒绝的写操作与 DDL 关键字
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE",
	"ALTER", "TRUNCATE", "GRANT", "REVOKE",
}

// ValidateSQL 只读安全门禁: 包含任何禁用关键字或不以 SELECT 开头的
// 语句一律拒绝,被拒绝的语句绝不会到达执行阶段
func ValidateSQL(sql string) bool {
	upper := strings.ToUpper(sql)
	for _, keyword := range forbiddenKeywords {
		if strings.Contains(upper, keyword) {
			logx.Warn("SQL validation rejected: '%s'", sql)
			return false
		}
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT") {
		logx.Warn("SQL validation rejected: '%s'", sql)
		return false
	}
	return true
}

// IsSQLShaped 判断模型返回是否是 SQL: 大小写不敏感地包含 SELECT,
// 且去除首尾空白后以分号结尾。不满足时按表结构的自然语言回答处理
func IsSQLShaped(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.Contains(strings.ToUpper(trimmed), "SELECT") &&
		strings.HasSuffix(trimmed, ";")
}
