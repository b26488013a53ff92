package knowledge

import (
	"context"
	"sort"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/yujm888/finrag/internal/embedding"
)

// recallMultiplier 召回阶段的过召回倍数,给重排序阶段留出足够候选
const recallMultiplier = 10

// Scorer 重排序打分接口
type Scorer interface {
	Score(ctx context.Context, query string, documents []string) ([]float64, error)
}

// SearchEngine 混合搜索引擎,组合稠密向量检索、BM25 关键词检索与交叉编码器重排序
type SearchEngine struct {
	embedder embedding.Embedder
	dense    *DenseIndex
	lexical  *BM25Index
	reranker Scorer
	chunks   []Chunk
	ready    bool
}

// NewSearchEngine 创建搜索引擎。
// 知识库(向量索引 + 知识块文件)加载失败时不报错退出,引擎标记为不可用,
// 后续搜索返回空结果,保证服务的其余部分可以降级运行;
// 重排序器加载失败仅降级为融合模式。
func NewSearchEngine(indexPath, chunksPath string, embedder embedding.Embedder, reranker Scorer) *SearchEngine {
	logx.Info("Initializing search engine...")

	engine := &SearchEngine{
		embedder: embedder,
		reranker: reranker,
	}

	dense, err := LoadDenseIndex(indexPath)
	if err != nil {
		logx.Error("Failed to load dense index from %s: %v", indexPath, err)
		return engine
	}

	chunks, err := LoadChunks(chunksPath)
	if err != nil {
		logx.Error("Failed to load chunks from %s: %v", chunksPath, err)
		return engine
	}

	// 向量与知识块按序号一一对应,数量不一致说明知识库损坏
	if dense.Len() != len(chunks) {
		logx.Error("Knowledge base corrupted: index has %d vectors but chunks file has %d entries",
			dense.Len(), len(chunks))
		return engine
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	tokenizer, err := NewGseTokenizer()
	if err != nil {
		logx.Error("Failed to initialize tokenizer: %v", err)
		return engine
	}

	engine.dense = dense
	engine.chunks = chunks
	engine.lexical = NewBM25Index(texts, tokenizer)
	engine.ready = true

	if engine.reranker != nil {
		logx.Info("Search engine initialized (dense + BM25 + reranker), %d chunks", len(chunks))
	} else {
		logx.Warn("Search engine initialized without reranker, fusion-only mode")
	}

	return engine
}

// Ready 引擎是否可用
func (e *SearchEngine) Ready() bool {
	return e.ready
}

// Search 执行三阶段搜索: 召回(稠密 + 关键词) -> 融合 -> 重排序。
// 返回至多 k 条结果;任何外部调用失败都转换为空结果,不向上抛出。
func (e *SearchEngine) Search(ctx context.Context, query string, k int) []Result {
	if !e.ready {
		logx.Error("Search engine is not initialized, unable to search")
		return nil
	}
	if k <= 0 {
		return nil
	}

	recallK := k * recallMultiplier

	var denseIndices []int
	queryVector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		// 嵌入失败时无法进行任何有意义的召回,直接返回空
		logx.Error("Failed to embed query: %v", err)
		return nil
	}

	denseIndices, err = e.dense.Search(queryVector, recallK)
	if err != nil {
		logx.Error("Dense search failed: %v", err)
		denseIndices = nil
	}

	lexicalIndices := e.lexical.Search(query, recallK)

	fused := fuseCandidates(denseIndices, lexicalIndices)
	if len(fused) == 0 {
		return nil
	}

	if e.reranker == nil {
		logx.Warn("Reranker unavailable, returning fused results without reranking")
		return e.takeTop(fused, k)
	}

	documents := make([]string, len(fused))
	for i, idx := range fused {
		documents[i] = e.chunks[idx].Text
	}

	logx.Info("Reranking %d recalled chunks...", len(fused))
	scores, err := e.reranker.Score(ctx, query, documents)
	if err != nil {
		logx.Warn("Rerank failed, falling back to fused order: %v", err)
		return e.takeTop(fused, k)
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(fused))
	for i, idx := range fused {
		ranked[i] = scored{idx: idx, score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	results := make([]Result, k)
	for i := 0; i < k; i++ {
		results[i] = Result{Chunk: e.chunks[ranked[i].idx], Score: ranked[i].score}
	}
	return results
}

// fuseCandidates 合并两路召回结果,按知识块序号去重。
// 顺序是确定的: 先按稠密检索名次,再补充仅出现在关键词检索中的候选,
// 作为重排序不可用时的回退顺序。
func fuseCandidates(denseIndices, lexicalIndices []int) []int {
	seen := make(map[int]struct{}, len(denseIndices)+len(lexicalIndices))
	fused := make([]int, 0, len(denseIndices)+len(lexicalIndices))

	for _, idx := range denseIndices {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		fused = append(fused, idx)
	}
	for _, idx := range lexicalIndices {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		fused = append(fused, idx)
	}

	return fused
}

// takeTop 按融合顺序取前 k 个知识块
func (e *SearchEngine) takeTop(fused []int, k int) []Result {
	if k > len(fused) {
		k = len(fused)
	}
	results := make([]Result, k)
	for i := 0; i < k; i++ {
		results[i] = Result{Chunk: e.chunks[fused[i]]}
	}
	return results
}
