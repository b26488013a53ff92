package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata 知识块元数据,由离线构建流程写入
type Metadata struct {
	SourceFile   string `json:"source_file"`
	DocTitle     string `json:"doc_title"`
	ChapterTitle string `json:"chapter_title"`
	// ContentType 取值 text | table
	ContentType string `json:"content_type"`
}

// Chunk 知识块,检索的最小单位,以在 chunks 文件中的序号为标识
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Result 检索结果,知识块附带融合/重排后的相关性分数
type Result struct {
	Chunk Chunk
	Score float64
}

// Source 答案引用来源,(文档标题, 章节标题) 去重后的条目
type Source struct {
	DocTitle     string `json:"doc_title"`
	ChapterTitle string `json:"chapter_title"`
}

// chunksFile 知识块文件的顶层结构
type chunksFile struct {
	Chunks []Chunk `json:"chunks"`
}

// LoadChunks 从 JSON 文件加载知识块列表
func LoadChunks(path string) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunks file: %w", err)
	}

	var file chunksFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse chunks file: %w", err)
	}

	return file.Chunks, nil
}
