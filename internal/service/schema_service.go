package service

import (
	"context"
	"encoding/json"
	"time"

	"query_clash_backend/internal/repository"
	"query_clash_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const schemaCacheKey = "query_clash:schema"

// SchemaService lists the dataset tables players can query. The result is
// cached in redis when a client is configured; the dataset is static.
type SchemaService struct {
	Dataset *repository.DatasetRepository
	Redis   *redis.Client
	TTL     time.Duration
}

func NewSchemaService(dataset *repository.DatasetRepository, rdb *redis.Client, ttl time.Duration) *SchemaService {
	return &SchemaService{Dataset: dataset, Redis: rdb, TTL: ttl}
}

func (s *SchemaService) Schema(ctx context.Context) (map[string][]string, error) {
	if s.Redis != nil {
		raw, err := s.Redis.Get(ctx, schemaCacheKey).Bytes()
		if err == nil {
			var cached map[string][]string
			if jerr := json.Unmarshal(raw, &cached); jerr == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("Schema cache read failed", zap.Error(err))
		}
	}

	schema, err := s.Dataset.VisibleSchema(ctx)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if raw, err := json.Marshal(schema); err == nil {
			if err := s.Redis.Set(ctx, schemaCacheKey, raw, s.TTL).Err(); err != nil {
				logger.Log.Warn("Schema cache write failed", zap.Error(err))
			}
		}
	}
	return schema, nil
}
