package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"erp-knowledge-backend/config"
	"erp-knowledge-backend/dao"
	"erp-knowledge-backend/service/vectorstore"
)

// 为数据库中的所有集合预建Milvus命名空间，部署新环境时运行一次
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	if err := config.Load(configPath); err != nil {
		slog.Error("Failed to load config", "path", configPath, "err", err)
		os.Exit(1)
	}

	if err := dao.Init(config.Cfg.DB.DSN); err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := vectorstore.NewMilvusStore(ctx, config.Cfg.Milvus.Endpoint, config.Cfg.Milvus.APIKey)
	if err != nil {
		slog.Error("Failed to connect to milvus", "err", err)
		os.Exit(1)
	}

	collections, err := dao.ListCollections()
	if err != nil {
		slog.Error("Failed to list collections", "err", err)
		os.Exit(1)
	}

	for _, collection := range collections {
		namespace := collection.Namespace()
		if err := store.EnsureNamespace(ctx, namespace, collection.EmbeddingDim); err != nil {
			slog.Error("Failed to ensure namespace",
				"collection_id", collection.ID,
				"namespace", namespace,
				"err", err)
			continue
		}
		slog.Info("Namespace ready",
			"collection_id", collection.ID,
			"namespace", namespace,
			"dim", collection.EmbeddingDim)
	}
}
