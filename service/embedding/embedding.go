package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"erp-knowledge-backend/utils"

	"github.com/avast/retry-go/v4"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	defaultEmbeddingBatchSize = 10
	embeddingTimeout          = 60 * time.Second

	embedAttempts = 3
)

// Factory 按embedding模型名创建embedder。
// 每个集合绑定一个模型，客户端按模型复用。
type Factory interface {
	ForModel(model string) (embeddings.Embedder, error)
}

// OpenAIFactory 基于OpenAI兼容接口的embedder工厂
type OpenAIFactory struct {
	baseURL string
	apiKey  string

	mu    sync.Mutex
	cache map[string]embeddings.Embedder
}

var _ Factory = &OpenAIFactory{}

func NewOpenAIFactory(baseURL, apiKey string) *OpenAIFactory {
	return &OpenAIFactory{
		baseURL: baseURL,
		apiKey:  apiKey,
		cache:   make(map[string]embeddings.Embedder),
	}
}

func (f *OpenAIFactory) ForModel(model string) (embeddings.Embedder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if embedder, ok := f.cache[model]; ok {
		return embedder, nil
	}

	client, err := openai.New(
		openai.WithEmbeddingModel(model),
		openai.WithToken(f.apiKey),
		openai.WithBaseURL(f.baseURL),
		openai.WithHTTPClient(utils.NewHTTPClient(
			utils.WithTimeout(embeddingTimeout),
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder client: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(defaultEmbeddingBatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %v", err)
	}

	wrapped := withRetry(embedder)
	f.cache[model] = wrapped
	return wrapped, nil
}

// retryEmbedder 对embedding接口调用做退避重试
type retryEmbedder struct {
	inner embeddings.Embedder
}

func withRetry(inner embeddings.Embedder) embeddings.Embedder {
	return &retryEmbedder{inner: inner}
}

func (e *retryEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return retry.DoWithData(
		func() ([][]float32, error) {
			return e.inner.EmbedDocuments(ctx, texts)
		},
		retry.Context(ctx),
		retry.Attempts(embedAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying to embed documents",
				"attempt", n+1,
				"texts_num", len(texts),
				"err", err)
		}),
	)
}

func (e *retryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return retry.DoWithData(
		func() ([]float32, error) {
			return e.inner.EmbedQuery(ctx, text)
		},
		retry.Context(ctx),
		retry.Attempts(embedAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying to embed query", "attempt", n+1, "err", err)
		}),
	)
}
