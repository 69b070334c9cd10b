package response

import "erp-knowledge-backend/service/retrieval"

type SearchResponse struct {
	Results []retrieval.Result `json:"results"`

	// Context 拼装好的system提示块，按需返回
	Context string `json:"context,omitempty"`
}
