// Package schema 提供数据库表结构的提取与缓存,
// 输出带注释的 CREATE TABLE 风格 DDL 文本供大模型生成 SQL 时参考。
package schema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cnb.cool/zhiqiangwang/pkg/logx"
)

// Fetcher 按后端实现的表结构提取接口
type Fetcher interface {
	FetchSchema(ctx context.Context) (string, error)
}

// Cached 为任意 Fetcher 附加文件缓存的装饰器。
// 读穿透策略: 缓存文件存在则直接返回内容,不访问数据库;
// 不存在则从数据库提取、落盘并返回。无 TTL,只能通过 Clear 手动失效。
type Cached struct {
	fetcher   Fetcher
	cachePath string
}

// NewCached 创建带缓存的表结构提取器
func NewCached(fetcher Fetcher, cachePath string) *Cached {
	return &Cached{
		fetcher:   fetcher,
		cachePath: cachePath,
	}
}

// GetSchema 获取带注释的 DDL 文本
func (c *Cached) GetSchema(ctx context.Context) (string, error) {
	if data, err := os.ReadFile(c.cachePath); err == nil {
		logx.Info("Schema cache hit, loading from %s", c.cachePath)
		return string(data), nil
	}

	logx.Info("Schema cache miss, fetching from database...")
	schema, err := c.fetcher.FetchSchema(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch schema: %w", err)
	}

	if dir := filepath.Dir(c.cachePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logx.Warn("Failed to create schema cache directory: %v", err)
			return schema, nil
		}
	}
	if err := os.WriteFile(c.cachePath, []byte(schema), 0644); err != nil {
		// 写缓存失败不影响本次结果
		logx.Warn("Failed to write schema cache file: %v", err)
	} else {
		logx.Info("Schema cache written to %s", c.cachePath)
	}

	return schema, nil
}

// Clear 清除缓存文件,下一次 GetSchema 会重新从数据库提取
func (c *Cached) Clear() error {
	err := os.Remove(c.cachePath)
	if errors.Is(err, os.ErrNotExist) {
		logx.Info("Schema cache file does not exist, nothing to clear")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove schema cache file: %w", err)
	}
	logx.Info("Schema cache file cleared")
	return nil
}
