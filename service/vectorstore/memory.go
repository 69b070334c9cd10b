package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore 进程内向量库，暴力余弦检索。
// 用于测试和未配置Milvus的本地环境。
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]*memoryNamespace
}

type memoryNamespace struct {
	dim    int
	points map[uint]Point
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces: make(map[string]*memoryNamespace),
	}
}

func (s *MemoryStore) EnsureNamespace(_ context.Context, namespace string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension: %d", dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.namespaces[namespace]; !ok {
		s.namespaces[namespace] = &memoryNamespace{
			dim:    dim,
			points: make(map[uint]Point),
		}
	}
	return nil
}

func (s *MemoryStore) DropNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

func (s *MemoryStore) Upsert(_ context.Context, namespace string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return fmt.Errorf("namespace not found: %s", namespace)
	}
	for _, p := range points {
		if len(p.Vector) != ns.dim {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(p.Vector), ns.dim)
		}
		ns.points[p.ID] = p
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, namespace string, ids []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(ns.points, id)
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, namespace string, vector []float32, topK int, minScore float32) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, fmt.Errorf("namespace not found: %s", namespace)
	}
	if topK <= 0 {
		topK = 5
	}

	matches := make([]Match, 0, len(ns.points))
	for _, p := range ns.points {
		score := cosine(vector, p.Vector)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{
			ID:         p.ID,
			ResourceID: p.ResourceID,
			Score:      score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
