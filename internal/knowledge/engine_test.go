package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 测试用嵌入服务
type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

func (f *fakeEmbedder) GetModel() string { return "fake" }

// fakeScorer 测试用重排序器,按预设分数返回
type fakeScorer struct {
	scores map[string]float64
	err    error
	calls  int
}

func (f *fakeScorer) Score(_ context.Context, _ string, documents []string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	scores := make([]float64, len(documents))
	for i, doc := range documents {
		scores[i] = f.scores[doc]
	}
	return scores, nil
}

// newTestEngine 用内存组件构造搜索引擎
func newTestEngine(chunks []Chunk, vectors [][]float32, embedder *fakeEmbedder, scorer Scorer) *SearchEngine {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return &SearchEngine{
		embedder: embedder,
		dense:    &DenseIndex{vectors: vectors, dim: len(vectors[0])},
		lexical:  NewBM25Index(texts, fieldsTokenizer{}),
		reranker: scorer,
		chunks:   chunks,
		ready:    true,
	}
}

func testChunks() []Chunk {
	return []Chunk{
		{Text: "资管 新规 要求", Metadata: Metadata{DocTitle: "资管新规", ChapterTitle: "第一章"}},
		{Text: "银行 理财 办法", Metadata: Metadata{DocTitle: "理财办法", ChapterTitle: "第二章"}},
		{Text: "投资者 适当性", Metadata: Metadata{DocTitle: "适当性办法", ChapterTitle: "第三章"}},
	}
}

func testVectors() [][]float32 {
	return [][]float32{
		{1, 0},
		{0.9, 0.1},
		{0, 1},
	}
}

func TestFuseCandidates(t *testing.T) {
	t.Run("exact union without duplicates", func(t *testing.T) {
		fused := fuseCandidates([]int{2, 0, 1}, []int{1, 3})
		assert.Equal(t, []int{2, 0, 1, 3}, fused)
	})

	t.Run("dense rank first then lexical", func(t *testing.T) {
		fused := fuseCandidates([]int{5, 4}, []int{9, 5, 8})
		assert.Equal(t, []int{5, 4, 9, 8}, fused)
	})

	t.Run("both empty", func(t *testing.T) {
		assert.Empty(t, fuseCandidates(nil, nil))
	})
}

func TestSearchEngine_Search(t *testing.T) {
	t.Run("result count bounded by k", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{1, 0}}
		engine := newTestEngine(testChunks(), testVectors(), embedder, nil)

		results := engine.Search(context.Background(), "银行 理财", 2)
		assert.LessOrEqual(t, len(results), 2)
	})

	t.Run("reranker reorders results", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{1, 0}}
		scorer := &fakeScorer{scores: map[string]float64{
			"资管 新规 要求": 0.1,
			"银行 理财 办法": 0.9,
			"投资者 适当性":  0.5,
		}}
		engine := newTestEngine(testChunks(), testVectors(), embedder, scorer)

		results := engine.Search(context.Background(), "银行 理财", 3)
		require.Len(t, results, 3)
		assert.Equal(t, "银行 理财 办法", results[0].Chunk.Text)
		assert.Equal(t, 0.9, results[0].Score)
		assert.Equal(t, 1, scorer.calls)
	})

	t.Run("reranker disabled changes order not count", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{1, 0}}
		scorer := &fakeScorer{scores: map[string]float64{"投资者 适当性": 1.0}}

		withReranker := newTestEngine(testChunks(), testVectors(), embedder, scorer)
		withoutReranker := newTestEngine(testChunks(), testVectors(), embedder, nil)

		a := withReranker.Search(context.Background(), "银行", 3)
		b := withoutReranker.Search(context.Background(), "银行", 3)
		assert.Equal(t, len(a), len(b))
	})

	t.Run("fallback order follows dense rank", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{1, 0}}
		engine := newTestEngine(testChunks(), testVectors(), embedder, nil)

		results := engine.Search(context.Background(), "理财", 3)
		require.Len(t, results, 3)
		// 稠密名次靠前的在先,回退顺序是确定的
		assert.Equal(t, "资管 新规 要求", results[0].Chunk.Text)
		assert.Equal(t, "银行 理财 办法", results[1].Chunk.Text)
	})

	t.Run("rerank failure falls back to fused order", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{1, 0}}
		scorer := &fakeScorer{err: errors.New("rerank service down")}
		engine := newTestEngine(testChunks(), testVectors(), embedder, scorer)

		results := engine.Search(context.Background(), "理财", 2)
		assert.Len(t, results, 2)
	})

	t.Run("embedding failure returns empty", func(t *testing.T) {
		embedder := &fakeEmbedder{err: errors.New("embedding service down")}
		scorer := &fakeScorer{}
		engine := newTestEngine(testChunks(), testVectors(), embedder, scorer)

		results := engine.Search(context.Background(), "银行", 3)
		assert.Empty(t, results)
		assert.Zero(t, scorer.calls)
	})

	t.Run("empty recall skips reranker", func(t *testing.T) {
		scorer := &fakeScorer{}
		embedder := &fakeEmbedder{vector: []float32{1}}
		engine := &SearchEngine{
			embedder: embedder,
			dense:    &DenseIndex{vectors: nil, dim: 1},
			lexical:  NewBM25Index(nil, fieldsTokenizer{}),
			reranker: scorer,
			ready:    true,
		}

		results := engine.Search(context.Background(), "任何问题", 5)
		assert.Empty(t, results)
		assert.Zero(t, scorer.calls)
	})

	t.Run("not ready returns empty", func(t *testing.T) {
		engine := &SearchEngine{}
		assert.Empty(t, engine.Search(context.Background(), "银行", 3))
		assert.False(t, engine.Ready())
	})

	t.Run("zero k returns empty", func(t *testing.T) {
		embedder := &fakeEmbedder{vector: []float32{1, 0}}
		engine := newTestEngine(testChunks(), testVectors(), embedder, nil)
		assert.Empty(t, engine.Search(context.Background(), "银行", 0))
	})
}

func TestNewSearchEngine_CorruptedKnowledgeBase(t *testing.T) {
	// 缺失的文件使引擎处于不可用状态,而不是构造失败
	engine := NewSearchEngine("/nonexistent/index", "/nonexistent/chunks.json", &fakeEmbedder{}, nil)
	assert.False(t, engine.Ready())
	assert.Empty(t, engine.Search(context.Background(), "银行", 3))
}
