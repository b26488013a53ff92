package schema

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// SQLiteFetcher 从 SQLite 提取表结构。
// SQLite 本身不支持注释元数据,约定业务库内维护一张 schema_comments
// 数据字典表(table_name, column_name, comment),表级注释的
// column_name 固定为 table_comment。
type SQLiteFetcher struct {
	db *gorm.DB
}

// NewSQLiteFetcher 创建 SQLite 表结构提取器
func NewSQLiteFetcher(db *gorm.DB) *SQLiteFetcher {
	return &SQLiteFetcher{db: db}
}

var _ Fetcher = (*SQLiteFetcher)(nil)

// FetchSchema 提取全部业务表的带注释 DDL
func (f *SQLiteFetcher) FetchSchema(ctx context.Context) (string, error) {
	var tableNames []string
	err := f.db.WithContext(ctx).Raw(`
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND name != 'schema_comments'
		ORDER BY name
	`).Scan(&tableNames).Error
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}

	comments, err := f.loadComments(ctx)
	if err != nil {
		return "", err
	}

	var columns []Column
	for _, tableName := range tableNames {
		var cols []struct {
			Name string `gorm:"column:name"`
			Type string `gorm:"column:type"`
		}
		if err := f.db.WithContext(ctx).
			Raw(fmt.Sprintf("PRAGMA table_info(%q)", tableName)).
			Scan(&cols).Error; err != nil {
			return "", fmt.Errorf("failed to read columns of %s: %w", tableName, err)
		}

		tableComment := comments[commentKey{tableName, "table_comment"}]
		for _, col := range cols {
			columns = append(columns, Column{
				Table:        tableName,
				TableComment: tableComment,
				Name:         col.Name,
				Type:         col.Type,
				Comment:      comments[commentKey{tableName, col.Name}],
			})
		}
	}

	return renderDDL(columns), nil
}

type commentKey struct {
	table  string
	column string
}

// loadComments 加载数据字典表,字典表不存在时返回空映射
func (f *SQLiteFetcher) loadComments(ctx context.Context) (map[commentKey]string, error) {
	var hasDict int64
	err := f.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name = 'schema_comments'
	`).Scan(&hasDict).Error
	if err != nil {
		return nil, fmt.Errorf("failed to probe schema_comments: %w", err)
	}

	comments := make(map[commentKey]string)
	if hasDict == 0 {
		return comments, nil
	}

	var rows []struct {
		TableName  string `gorm:"column:table_name"`
		ColumnName string `gorm:"column:column_name"`
		Comment    string `gorm:"column:comment"`
	}
	if err := f.db.WithContext(ctx).
		Raw(`SELECT table_name, column_name, comment FROM schema_comments`).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read schema_comments: %w", err)
	}

	for _, row := range rows {
		comments[commentKey{row.TableName, row.ColumnName}] = row.Comment
	}
	return comments, nil
}
