package requestflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SelectionKey is the well-known name the catalog browser writes the user's
// dataset selection under.
const SelectionKey = "dcm_selected_datasets"

// SelectionStore holds dataset selections made outside the request flow.
// Load reports found=false when nothing was ever stored for the scope, which
// is different from an explicitly empty selection.
type SelectionStore interface {
	Load(ctx context.Context, scope string) (ids []string, found bool, err error)
	Save(ctx context.Context, scope string, ids []string) error
	Clear(ctx context.Context, scope string) error
}

func selectionKey(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return SelectionKey
	}
	return SelectionKey + ":" + scope
}

type MemorySelectionStore struct {
	mu   sync.RWMutex
	sets map[string][]string
}

func NewMemorySelectionStore() *MemorySelectionStore {
	return &MemorySelectionStore{sets: make(map[string][]string)}
}

func (m *MemorySelectionStore) Load(_ context.Context, scope string) ([]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids, ok := m.sets[selectionKey(scope)]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), ids...), true, nil
}

func (m *MemorySelectionStore) Save(_ context.Context, scope string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[selectionKey(scope)] = append([]string{}, ids...)
	return nil
}

func (m *MemorySelectionStore) Clear(_ context.Context, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets, selectionKey(scope))
	return nil
}

// RedisSelectionStore keeps selections as JSON arrays so the catalog UI and
// the dashboard can share them across processes.
type RedisSelectionStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedisSelectionStore(ctx context.Context, addr string, ttl time.Duration) (*RedisSelectionStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSelectionStore{rdb: rdb, ttl: ttl}, nil
}

func (r *RedisSelectionStore) Load(ctx context.Context, scope string) ([]string, bool, error) {
	raw, err := r.rdb.Get(ctx, selectionKey(scope)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load selection: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, fmt.Errorf("decode selection: %w", err)
	}
	return ids, true, nil
}

func (r *RedisSelectionStore) Save(ctx context.Context, scope string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, selectionKey(scope), raw, r.ttl).Err()
}

func (r *RedisSelectionStore) Clear(ctx context.Context, scope string) error {
	return r.rdb.Del(ctx, selectionKey(scope)).Err()
}

func (r *RedisSelectionStore) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
