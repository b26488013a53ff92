package knowledge

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
)

// DenseIndex 稠密向量索引,平铺存储全部知识块向量,暴力余弦检索。
// 文件格式: 小端 uint32 向量数 + uint32 维度 + count*dim 个 float32。
// 第 i 行向量与 chunks 文件中第 i 个知识块严格对应。
type DenseIndex struct {
	vectors [][]float32
	dim     int
}

// LoadDenseIndex 从文件加载向量索引
func LoadDenseIndex(path string) (*DenseIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index file: %w", err)
	}
	defer f.Close()

	var header struct {
		Count uint32
		Dim   uint32
	}
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}

	if header.Dim == 0 {
		return nil, fmt.Errorf("index file has zero dimension")
	}

	vectors := make([][]float32, header.Count)
	for i := range vectors {
		row := make([]float32, header.Dim)
		if err := binary.Read(f, binary.LittleEndian, &row); err != nil {
			return nil, fmt.Errorf("failed to read vector %d: %w", i, err)
		}
		vectors[i] = row
	}

	return &DenseIndex{
		vectors: vectors,
		dim:     int(header.Dim),
	}, nil
}

// Len 返回索引中的向量数量
func (d *DenseIndex) Len() int {
	return len(d.vectors)
}

// Dim 返回向量维度
func (d *DenseIndex) Dim() int {
	return d.dim
}

// Search 按余弦相似度返回与查询向量最接近的前 n 个知识块序号,降序排列
func (d *DenseIndex) Search(query []float32, n int) ([]int, error) {
	if len(query) != d.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), d.dim)
	}
	if n <= 0 || len(d.vectors) == 0 {
		return nil, nil
	}

	type scored struct {
		idx   int
		score float64
	}

	results := make([]scored, 0, len(d.vectors))
	for i, vec := range d.vectors {
		results = append(results, scored{idx: i, score: cosineSimilarity(query, vec)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		// 分数相同时按序号稳定排序
		return results[i].idx < results[j].idx
	})

	if n > len(results) {
		n = len(results)
	}

	indices := make([]int, n)
	for i := 0; i < n; i++ {
		indices[i] = results[i].idx
	}
	return indices, nil
}

// cosineSimilarity 计算两个向量的余弦相似度
func cosineSimilarity(a, b []float32) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// WriteDenseIndex 将向量矩阵写入索引文件,供离线构建与测试使用
func WriteDenseIndex(path string, vectors [][]float32) error {
	if len(vectors) == 0 {
		return fmt.Errorf("no vectors to write")
	}

	dim := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vec), dim)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}
	defer f.Close()

	header := struct {
		Count uint32
		Dim   uint32
	}{Count: uint32(len(vectors)), Dim: uint32(dim)}

	if err := binary.Write(f, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write index header: %w", err)
	}
	for i, vec := range vectors {
		if err := binary.Write(f, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("failed to write vector %d: %w", i, err)
		}
	}
	return nil
}
