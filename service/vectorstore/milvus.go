package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

const (
	int64Type       = "Int64"
	floatVectorType = "FloatVector"

	ddlTimeout = 10 * time.Second
)

// MilvusStore 基于Milvus的向量库实现。
// 数据面走SDK，建表等DDL走HTTP API。
type MilvusStore struct {
	client   *milvusclient.Client
	endpoint string
	apiKey   string
}

var _ Store = &MilvusStore{}

func NewMilvusStore(ctx context.Context, endpoint, apiKey string) (*MilvusStore, error) {
	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: endpoint,
		APIKey:  apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %v", err)
	}

	return &MilvusStore{
		client:   client,
		endpoint: endpoint,
		apiKey:   apiKey,
	}, nil
}

type createCollectionRequest struct {
	CollectionName string         `json:"collectionName"`
	Schema         *schema        `json:"schema"`
	IndexParams    []*indexParams `json:"indexParams"`
}

type schema struct {
	AutoID             bool     `json:"autoId"`
	EnableDynamicField bool     `json:"enableDynamicField"`
	Fields             []*field `json:"fields"`
}

type field struct {
	FieldName         string            `json:"fieldName"`
	DataType          string            `json:"dataType"`
	ElementTypeParams map[string]string `json:"elementTypeParams,omitempty"`
	IsPrimary         bool              `json:"isPrimary,omitempty"`
}

type indexParams struct {
	MetricType string            `json:"metricType,omitempty"`
	FieldName  string            `json:"fieldName"`
	IndexName  string            `json:"indexName"`
	Params     map[string]string `json:"params"`
}

func (s *MilvusStore) EnsureNamespace(ctx context.Context, namespace string, dim int) error {
	req := &createCollectionRequest{
		CollectionName: namespace,
		Schema: &schema{
			EnableDynamicField: false,
			Fields: []*field{
				{
					FieldName: "id",
					DataType:  int64Type,
					IsPrimary: true,
				},
				{
					FieldName: "vector",
					DataType:  floatVectorType,
					ElementTypeParams: map[string]string{
						"dim": strconv.Itoa(dim),
					},
				},
				{
					FieldName: "resource_id",
					DataType:  int64Type,
				},
			},
		},
		IndexParams: []*indexParams{
			{
				MetricType: "COSINE",
				FieldName:  "vector",
				IndexName:  "vector_index",
				Params: map[string]string{
					"indexType": "HNSW",
				},
			},
			{
				FieldName: "resource_id",
				IndexName: "resource_id_index",
				Params: map[string]string{
					"indexType": "INVERTED",
				},
			},
		},
	}

	return s.ddl(ctx, "/v2/vectordb/collections/create", req)
}

func (s *MilvusStore) DropNamespace(ctx context.Context, namespace string) error {
	return s.ddl(ctx, "/v2/vectordb/collections/drop", map[string]string{
		"collectionName": namespace,
	})
}

// ddl 通过Milvus HTTP API执行集合管理操作
func (s *MilvusStore) ddl(ctx context.Context, path string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, ddlTimeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Add("Authorization", "Bearer "+s.apiKey)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("milvus ddl failed, status: %d, body: %s", resp.StatusCode, string(respBody))
	}

	slog.Debug("milvus ddl response", "path", path, "body", string(respBody))
	return nil
}

func (s *MilvusStore) Upsert(ctx context.Context, namespace string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	dim := len(points[0].Vector)
	ids := make([]int64, 0, len(points))
	resourceIDs := make([]int64, 0, len(points))
	vectors := make([][]float32, 0, len(points))
	for _, p := range points {
		ids = append(ids, int64(p.ID))
		resourceIDs = append(resourceIDs, int64(p.ResourceID))
		vectors = append(vectors, p.Vector)
	}

	option := milvusclient.NewColumnBasedInsertOption(namespace).
		WithColumns(
			column.NewColumnInt64("id", ids),
			column.NewColumnFloatVector("vector", dim, vectors),
			column.NewColumnInt64("resource_id", resourceIDs),
		)

	if _, err := s.client.Upsert(ctx, option); err != nil {
		return fmt.Errorf("failed to upsert vectors: %v", err)
	}
	return nil
}

func (s *MilvusStore) Delete(ctx context.Context, namespace string, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	int64IDs := make([]int64, 0, len(ids))
	for _, id := range ids {
		int64IDs = append(int64IDs, int64(id))
	}

	option := milvusclient.NewDeleteOption(namespace).WithInt64IDs("id", int64IDs)
	if _, err := s.client.Delete(ctx, option); err != nil {
		return fmt.Errorf("failed to delete vectors: %v", err)
	}
	return nil
}

func (s *MilvusStore) Query(ctx context.Context, namespace string, vector []float32, topK int, minScore float32) ([]Match, error) {
	option := milvusclient.NewSearchOption(namespace, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField("vector").
		WithOutputFields("resource_id")

	resultSets, err := s.client.Search(ctx, option)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %v", err)
	}

	var matches []Match
	for _, rs := range resultSets {
		resourceCol := rs.GetColumn("resource_id")
		for i := 0; i < rs.IDs.Len(); i++ {
			if rs.Scores[i] < minScore {
				continue
			}

			id, err := rs.IDs.GetAsInt64(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read result id: %v", err)
			}

			var resourceID int64
			if resourceCol != nil {
				resourceID, _ = resourceCol.GetAsInt64(i)
			}

			matches = append(matches, Match{
				ID:         uint(id),
				ResourceID: uint(resourceID),
				Score:      rs.Scores[i],
			})
		}
	}
	return matches, nil
}
