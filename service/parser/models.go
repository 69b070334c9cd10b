package parser

import (
	"fmt"
	"sync"

	"erp-knowledge-backend/utils"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIModelFactory 基于OpenAI兼容接口的chat模型工厂，按模型名复用客户端
type OpenAIModelFactory struct {
	baseURL string
	apiKey  string

	mu    sync.Mutex
	cache map[string]llms.Model
}

var _ ModelFactory = &OpenAIModelFactory{}

func NewOpenAIModelFactory(baseURL, apiKey string) *OpenAIModelFactory {
	return &OpenAIModelFactory{
		baseURL: baseURL,
		apiKey:  apiKey,
		cache:   make(map[string]llms.Model),
	}
}

func (f *OpenAIModelFactory) ForModel(model string) (llms.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.cache[model]; ok {
		return client, nil
	}

	client, err := openai.New(
		openai.WithModel(model),
		openai.WithToken(f.apiKey),
		openai.WithBaseURL(f.baseURL),
		openai.WithHTTPClient(utils.DefaultHTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %v", err)
	}

	f.cache[model] = client
	return client, nil
}
