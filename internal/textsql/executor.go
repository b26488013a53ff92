package textsql

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Executor SQL 执行接口,只承载只读查询
type Executor interface {
	Execute(ctx context.Context, sql string) (*Rows, error)
}

// GormExecutor 基于 gorm 的执行器
type GormExecutor struct {
	db *gorm.DB
}

// NewGormExecutor 创建执行器
func NewGormExecutor(db *gorm.DB) *GormExecutor {
	return &GormExecutor{db: db}
}

var _ Executor = (*GormExecutor)(nil)

// Execute 执行 SELECT 语句并返回全部记录,末尾分号在执行前剥离。
// 连接由底层连接池按次获取并在 rows 关闭时归还,任何出错路径都不持有连接
func (e *GormExecutor) Execute(ctx context.Context, sql string) (*Rows, error) {
	sql = strings.TrimSuffix(strings.TrimSpace(sql), ";")

	rows, err := e.db.WithContext(ctx).Raw(sql).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &Rows{Columns: columns}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record := make(map[string]any, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		result.Records = append(result.Records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// normalizeValue 驱动返回的 []byte 统一转为字符串,方便 JSON 序列化与展示
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
