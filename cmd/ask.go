package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/yujm888/finrag/internal/config"
	"github.com/yujm888/finrag/internal/hybrid"
	"github.com/yujm888/finrag/internal/textsql"
)

// askCmd 从终端直接提问
var askCmd = &cobra.Command{
	Use:   "ask [问题]",
	Short: "向问答引擎提问",
	Long:  `从终端直接提问,由意图路由器决定走文档检索还是数据库查询。`,
	Args:  cobra.ExactArgs(1),
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

		resp := application.hybridEng.Execute(context.Background(), args[0], nil)

		switch resp.Tool {
		case hybrid.ToolTextToSQL:
			printSQLResult(resp.SQL)
		default:
			fmt.Println(resp.RAG.Answer)
			if len(resp.RAG.Sources) > 0 {
				fmt.Println("\n参考来源：")
				for _, source := range resp.RAG.Sources {
					fmt.Printf("- 《%s》 %s\n", source.DocTitle, source.ChapterTitle)
				}
			}
		}
		return nil
	},
}

// printSQLResult 渲染 Text-to-SQL 结果,结果集用表格输出
func printSQLResult(result *textsql.Result) {
	switch result.Type {
	case textsql.TypeNaturalLanguageAnswer:
		fmt.Println(result.Answer)
	case textsql.TypeDatabaseResult:
		if result.Rows == nil {
			fmt.Println(result.Answer)
		} else {
			printRowsTable(result.Rows)
		}
		fmt.Printf("\n执行的 SQL: %s\n", result.GeneratedSQL)
	case textsql.TypeDatabaseError:
		fmt.Println(result.Error)
		fmt.Printf("执行的 SQL: %s\n", result.GeneratedSQL)
	default:
		if result.Answer != "" {
			fmt.Println(result.Answer)
		} else {
			fmt.Println(result.Error)
		}
	}
}

// printRowsTable 使用 lipgloss 表格输出结果集
func printRowsTable(rows *textsql.Rows) {
	headerStyle := lipgloss.NewStyle().Bold(true)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(rows.Columns...)

	for _, record := range rows.Records {
		cells := make([]string, len(rows.Columns))
		for i, col := range rows.Columns {
			cells[i] = strings.TrimSpace(fmt.Sprintf("%v", record[col]))
		}
		t.Row(cells...)
	}

	fmt.Println(t.Render())
}

func init() {
	rootCmd.AddCommand(askCmd)
}
