package vectorstore

import "context"

// Point 一条向量记录，ID与chunk主键一致，重复写入为幂等upsert
type Point struct {
	ID         uint
	ResourceID uint
	Vector     []float32
}

// Match 检索命中，Score为余弦相似度
type Match struct {
	ID         uint
	ResourceID uint
	Score      float32
}

// Store 向量库抽象，命名空间与知识集合一一对应
type Store interface {
	EnsureNamespace(ctx context.Context, namespace string, dim int) error
	DropNamespace(ctx context.Context, namespace string) error
	Upsert(ctx context.Context, namespace string, points []Point) error
	Delete(ctx context.Context, namespace string, ids []uint) error
	Query(ctx context.Context, namespace string, vector []float32, topK int, minScore float32) ([]Match, error)
}
