package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces every key written by RedisStore.
const DefaultRedisPrefix = "arbor:board:"

// RedisStore keeps entries as JSON strings, indexed per project by a sorted
// set scored by entry id.
type RedisStore struct {
	client *redis.Client
	prefix string
	owned  bool
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// NewRedisStore connects to the server at addr. Close closes the client.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) *RedisStore {
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
	s.owned = true
	return s
}

// NewRedisStoreFromClient wraps an existing client, which Close leaves open.
func NewRedisStoreFromClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) entryKey(project string, id int) string {
	return s.prefix + project + ":entry:" + strconv.Itoa(id)
}

func (s *RedisStore) indexKey(project string) string {
	return s.prefix + project + ":index"
}

func (s *RedisStore) currentKey(project string) string {
	return s.prefix + project + ":current"
}

func (s *RedisStore) Put(ctx context.Context, project string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	summary, err := json.Marshal(e.Summary())
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.entryKey(project, e.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(project), redis.Z{Score: float64(e.ID), Member: strconv.Itoa(e.ID)})
	pipe.Set(ctx, s.currentKey(project), summary, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Current(ctx context.Context, project string) (Entry, error) {
	return s.get(ctx, s.currentKey(project))
}

func (s *RedisStore) get(ctx context.Context, key string) (Entry, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNoEntries
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get from redis: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return Entry{}, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return e, nil
}

func (s *RedisStore) ids(ctx context.Context, project string) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(project), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) Entries(ctx context.Context, project string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		ids, err := s.ids(ctx, project)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		for _, member := range ids {
			id, err := strconv.Atoi(member)
			if err != nil {
				if !yield(Entry{}, fmt.Errorf("invalid entry id %q: %w", member, err)) {
					return
				}
				continue
			}
			if !yield(s.get(ctx, s.entryKey(project, id))) {
				return
			}
		}
	}
}

func (s *RedisStore) Clear(ctx context.Context, project string) error {
	ids, err := s.ids(ctx, project)
	if err != nil {
		return err
	}
	keys := []string{s.indexKey(project), s.currentKey(project)}
	for _, member := range ids {
		keys = append(keys, s.prefix+project+":entry:"+member)
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear project: %w", err)
	}
	return nil
}

// Close closes the client if the store created it.
func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
