package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yujm888/finrag/internal/config"
)

// schemaCmd 表结构缓存管理命令组
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "管理数据库表结构缓存",
	Long:  `查看、刷新数据库表结构缓存。缓存无过期时间,表结构变更后需要手动刷新。`,
}

// schemaShowCmd 查看当前表结构
var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "输出带注释的 DDL 表结构",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}

		application, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer application.close()

		ddl, err := application.schemaCache.GetSchema(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(ddl)
		return nil
	},
}

// schemaRefreshCmd 清除缓存并重新提取
var schemaRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "清除缓存并从数据库重新提取表结构",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}

		application, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer application.close()

		if err := application.schemaCache.Clear(); err != nil {
			return err
		}

		ddl, err := application.schemaCache.GetSchema(context.Background())
		if err != nil {
			return err
		}
		fmt.Println("表结构缓存已刷新：")
		fmt.Println(ddl)
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaRefreshCmd)
	rootCmd.AddCommand(schemaCmd)
}
