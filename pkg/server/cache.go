package server

import (
	"context"
	"errors"
	"time"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/matst80/slask-facets/pkg/types"
	"github.com/redis/go-redis/v9"
)

// FacetSnapshotStore keeps the last computed facet of each column for
// consumers outside the service.
type FacetSnapshotStore interface {
	Save(ctx context.Context, facet *JsonFacet) error
	Load(ctx context.Context, column types.ColumnId) (*JsonFacet, error)
}

const snapshotPrefix = "facets:"

var ErrNoSnapshot = errors.New("no facet snapshot stored")

func SnapshotKey(column types.ColumnId) string {
	return snapshotPrefix + string(column)
}

type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotStore(addr, password string, db int, ttl time.Duration) *RedisSnapshotStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSnapshotStore{client: rdb, ttl: ttl}
}

func (s *RedisSnapshotStore) Save(ctx context.Context, facet *JsonFacet) error {
	data, err := jsoncompat.Marshal(facet)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, SnapshotKey(facet.Column), data, s.ttl).Err()
}

// Load returns ErrNoSnapshot when no snapshot exists or it has expired.
func (s *RedisSnapshotStore) Load(ctx context.Context, column types.ColumnId) (*JsonFacet, error) {
	data, err := s.client.Get(ctx, SnapshotKey(column)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	facet := &JsonFacet{}
	if err := jsoncompat.Unmarshal(data, facet); err != nil {
		return nil, err
	}
	return facet, nil
}

func (s *RedisSnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}
