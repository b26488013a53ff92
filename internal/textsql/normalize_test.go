package textsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePunctuation(t *testing.T) {
	t.Run("fullwidth punctuation becomes ascii", func(t *testing.T) {
		got := NormalizePunctuation("SELECT count（*） FROM regulatory_documents WHERE doc_type ＝ ‘办法’；")
		assert.Equal(t, "SELECT count(*) FROM regulatory_documents WHERE doc_type = '办法';", got)
	})

	t.Run("backticks become single quotes", func(t *testing.T) {
		got := NormalizePunctuation("SELECT `doc_name` FROM t;")
		assert.Equal(t, "SELECT 'doc_name' FROM t;", got)
	})

	t.Run("fullwidth double quotes and commas", func(t *testing.T) {
		got := NormalizePunctuation("SELECT a，b FROM t WHERE c = “x”；")
		assert.Equal(t, `SELECT a,b FROM t WHERE c = "x";`, got)
	})

	t.Run("ascii text unchanged", func(t *testing.T) {
		sql := "SELECT * FROM regulatory_documents WHERE doc_id = 1;"
		assert.Equal(t, sql, NormalizePunctuation(sql))
	})

	t.Run("hanzi untouched", func(t *testing.T) {
		got := NormalizePunctuation("SELECT * FROM t WHERE name = '资管新规';")
		assert.Contains(t, got, "资管新规")
	})
}
