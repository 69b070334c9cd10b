package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/tmc/langchaingo/embeddings"
)

const defaultLocalDim = 256

// LocalEmbedder 确定性的词袋哈希embedding，无外部依赖。
// 用于测试和未配置模型服务的本地环境，不适合生产检索质量要求。
type LocalEmbedder struct {
	dim int
}

var _ embeddings.Embedder = &LocalEmbedder{}

func NewLocalEmbedder(dim int) *LocalEmbedder {
	if dim <= 0 {
		dim = defaultLocalDim
	}
	return &LocalEmbedder{dim: dim}
}

func (e *LocalEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vectors = append(vectors, e.embed(text))
	}
	return vectors, nil
}

func (e *LocalEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func (e *LocalEmbedder) embed(text string) []float32 {
	vector := make([]float32, e.dim)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		vector[h.Sum32()%uint32(e.dim)]++
	}

	// L2归一化，配合余弦度量
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}

// LocalFactory 所有模型名都返回同一个本地embedder
type LocalFactory struct {
	embedder *LocalEmbedder
}

var _ Factory = &LocalFactory{}

func NewLocalFactory(dim int) *LocalFactory {
	return &LocalFactory{embedder: NewLocalEmbedder(dim)}
}

func (f *LocalFactory) ForModel(string) (embeddings.Embedder, error) {
	return f.embedder, nil
}
