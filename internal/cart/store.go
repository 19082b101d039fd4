package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNotFound   = errors.New("cart not found")
	ErrInvalidKey = errors.New("invalid cart key")
	ErrCorrupt    = errors.New("corrupt cart data")
	ErrConflict   = errors.New("cart changed concurrently")
)

// maxUpdateAttempts bounds optimistic retries of a Redis cart update.
const maxUpdateAttempts = 100

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Store persists a whole cart line list under a single key. Update applies fn
// to the stored list and writes the result atomically per key; fn may run more
// than once and must not keep its argument. Missing or corrupt data reaches fn
// as an empty list.
type Store interface {
	Load(ctx context.Context, key string) (Items, error)
	Update(ctx context.Context, key string, fn func(Items) Items) (Items, error)
	Clear(ctx context.Context, key string) error
}

// stored turns a Load result into the list an update starts from.
func stored(items Items, err error) (Items, error) {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorrupt) {
		return nil, nil
	}
	return items, err
}

func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// FileStore keeps one JSON file per cart key inside dir. Writes to a key are
// serialized within the process.
type FileStore struct {
	dir   string
	locks sync.Map // key -> *sync.Mutex
}

func (s *FileStore) lock(key string) func() {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cart dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if !ValidKey(key) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, key+".json"), nil
}

func (s *FileStore) Load(_ context.Context, key string) (Items, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	return decode(data)
}

func (s *FileStore) Update(ctx context.Context, key string, fn func(Items) Items) (Items, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	defer s.lock(key)()

	items, err := stored(s.Load(ctx, key))
	if err != nil {
		return nil, err
	}
	next := fn(items)
	if err := s.write(p, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *FileStore) write(p string, items Items) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	return os.Rename(tmp, p)
}

func (s *FileStore) Clear(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	defer s.lock(key)()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cart: %w", err)
	}
	return nil
}

// RedisStore keeps carts as JSON strings with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return fmt.Sprintf("cart:%s", key)
}

func (s *RedisStore) Load(ctx context.Context, key string) (Items, error) {
	if !ValidKey(key) {
		return nil, ErrInvalidKey
	}
	data, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decode(data)
}

// Update runs fn inside a WATCH on the cart key and retries when another
// client wrote the key before EXEC.
func (s *RedisStore) Update(ctx context.Context, key string, fn func(Items) Items) (Items, error) {
	if !ValidKey(key) {
		return nil, ErrInvalidKey
	}
	rk := redisKey(key)

	var next Items
	txf := func(tx *redis.Tx) error {
		var items Items
		data, err := tx.Get(ctx, rk).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get failed: %w", err)
		default:
			if items, err = stored(decode(data)); err != nil {
				return err
			}
		}

		next = fn(items)
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal cart failed: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, payload, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.client.Watch(ctx, txf, rk)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return next, nil
	}
	return nil, ErrConflict
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func decode(data []byte) (Items, error) {
	var items Items
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !items.valid() {
		return nil, fmt.Errorf("%w: invalid line", ErrCorrupt)
	}
	return items, nil
}
