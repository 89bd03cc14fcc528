package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/grexie/secretchat/pkg/storage/interfaces"
	"github.com/grexie/secretchat/pkg/storage/memory"
	"github.com/grexie/secretchat/pkg/storage/mongo"
)

func NewStorage(ctx context.Context, backend string, mongoURL string) (interfaces.IStorageBackend, error) {
	switch strings.TrimSpace(backend) {
	case "", "memory":
		return memory.NewMemoryStorageBackend(), nil
	case "mongo":
		return mongo.NewMongoStorageBackend(ctx, mongoURL)
	default:
		return nil, fmt.Errorf("invalid storage backend: %s, check SECRETCHAT_STORAGE_BACKEND (memory or mongo)", backend)
	}
}
