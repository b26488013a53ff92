package textsql

import "strings"

// punctuationReplacer 全角中文标点到半角 ASCII 标点的映射。
// CJK 为主的提示词会让模型不稳定地输出全角标点,
// 未归一的标点会让 SQL 解析静默失败,执行前必须强制替换。
var punctuationReplacer = strings.NewReplacer(
	"（", "(",
	"）", ")",
	"‘", "'",
	"’", "'",
	"`", "'",
	"“", `"`,
	"”", `"`,
	"；", ";",
	"，", ",",
	"＝", "=",
)

// NormalizePunctuation 将文本中的全角标点替换为半角标点
func NormalizePunctuation(text string) string {
	return punctuationReplacer.Replace(text)
}
