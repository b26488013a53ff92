package schema

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// MySQLFetcher 从 MySQL 的 information_schema 提取表结构,
// 表注释与列注释直接取自原生元数据
type MySQLFetcher struct {
	db *gorm.DB
}

// NewMySQLFetcher 创建 MySQL 表结构提取器
func NewMySQLFetcher(db *gorm.DB) *MySQLFetcher {
	return &MySQLFetcher{db: db}
}

var _ Fetcher = (*MySQLFetcher)(nil)

// FetchSchema 提取当前库全部业务表的带注释 DDL
func (f *MySQLFetcher) FetchSchema(ctx context.Context) (string, error) {
	var rows []struct {
		TableName     string `gorm:"column:table_name"`
		TableComment  string `gorm:"column:table_comment"`
		ColumnName    string `gorm:"column:column_name"`
		ColumnType    string `gorm:"column:column_type"`
		ColumnComment string `gorm:"column:column_comment"`
	}

	err := f.db.WithContext(ctx).Raw(`
		SELECT c.TABLE_NAME   AS table_name,
		       t.TABLE_COMMENT AS table_comment,
		       c.COLUMN_NAME  AS column_name,
		       c.COLUMN_TYPE  AS column_type,
		       c.COLUMN_COMMENT AS column_comment
		FROM information_schema.COLUMNS c
		JOIN information_schema.TABLES t
		  ON c.TABLE_SCHEMA = t.TABLE_SCHEMA AND c.TABLE_NAME = t.TABLE_NAME
		WHERE c.TABLE_SCHEMA = DATABASE()
		  AND t.TABLE_TYPE = 'BASE TABLE'
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION
	`).Scan(&rows).Error
	if err != nil {
		return "", fmt.Errorf("failed to query information_schema: %w", err)
	}

	columns := make([]Column, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, Column{
			Table:        row.TableName,
			TableComment: row.TableComment,
			Name:         row.ColumnName,
			Type:         row.ColumnType,
			Comment:      row.ColumnComment,
		})
	}

	return renderDDL(columns), nil
}
