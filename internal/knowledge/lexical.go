package knowledge

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-ego/gse"
)

// BM25 参数,取 Okapi BM25 的常用默认值
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Tokenizer 分词器接口
type Tokenizer interface {
	Tokenize(text string) []string
}

// GseTokenizer 基于 gse 的中文分词器。
// 中文语料不能按空白切分,必须做词级切分,否则关键词检索质量会严重退化。
type GseTokenizer struct {
	seg gse.Segmenter
}

// NewGseTokenizer 创建分词器,加载内置词典
func NewGseTokenizer() (*GseTokenizer, error) {
	var seg gse.Segmenter
	if err := seg.LoadDict(); err != nil {
		return nil, fmt.Errorf("failed to load gse dictionary: %w", err)
	}
	return &GseTokenizer{seg: seg}, nil
}

// Tokenize 切词,过滤纯空白 token
func (t *GseTokenizer) Tokenize(text string) []string {
	raw := t.seg.Cut(text, true)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// BM25Index 关键词索引,对全部知识块文本做 Okapi BM25 打分
type BM25Index struct {
	tokenizer Tokenizer
	docTokens [][]string
	docLens   []int
	avgDocLen float64
	// idf 按词项缓存的逆文档频率
	idf map[string]float64
	// termFreq[i][term] 第 i 篇文档中词项出现次数
	termFreq []map[string]int
}

// NewBM25Index 对知识块文本构建 BM25 索引
func NewBM25Index(texts []string, tokenizer Tokenizer) *BM25Index {
	idx := &BM25Index{
		tokenizer: tokenizer,
		docTokens: make([][]string, len(texts)),
		docLens:   make([]int, len(texts)),
		idf:       make(map[string]float64),
		termFreq:  make([]map[string]int, len(texts)),
	}

	df := make(map[string]int)
	totalLen := 0

	for i, text := range texts {
		tokens := tokenizer.Tokenize(text)
		idx.docTokens[i] = tokens
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		idx.termFreq[i] = tf

		for term := range tf {
			df[term]++
		}
	}

	if len(texts) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(texts))
	}

	n := float64(len(texts))
	for term, freq := range df {
		idx.idf[term] = math.Log((n-float64(freq)+0.5)/(float64(freq)+0.5) + 1)
	}

	return idx
}

// Len 返回索引的文档数量
func (b *BM25Index) Len() int {
	return len(b.docTokens)
}

// Search 返回关键词得分非零的前 n 个知识块序号,按得分降序
func (b *BM25Index) Search(query string, n int) []int {
	if n <= 0 || len(b.docTokens) == 0 {
		return nil
	}

	queryTokens := b.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}

	var results []scored
	for i := range b.docTokens {
		score := b.scoreDoc(i, queryTokens)
		if score > 0 {
			results = append(results, scored{idx: i, score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].idx < results[j].idx
	})

	if n > len(results) {
		n = len(results)
	}

	indices := make([]int, n)
	for i := 0; i < n; i++ {
		indices[i] = results[i].idx
	}
	return indices
}

// scoreDoc 单篇文档对查询词的 BM25 得分
func (b *BM25Index) scoreDoc(doc int, queryTokens []string) float64 {
	var score float64
	docLen := float64(b.docLens[doc])

	for _, term := range queryTokens {
		tf := float64(b.termFreq[doc][term])
		if tf == 0 {
			continue
		}
		idf := b.idf[term]
		numerator := tf * (bm25K1 + 1)
		denominator := tf + bm25K1*(1-bm25B+bm25B*docLen/b.avgDocLen)
		score += idf * numerator / denominator
	}

	return score
}
