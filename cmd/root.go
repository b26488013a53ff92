package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "finrag",
	Short: "金融监管知识问答服务",
	Long:  `基于混合检索(向量 + 关键词 + 重排序)的金融监管知识问答服务,附带自然语言转 SQL 的数据库查询能力。`,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认搜索 ./config.yaml)")
}
