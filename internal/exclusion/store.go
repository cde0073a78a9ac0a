package exclusion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/recipelens/backend/internal/httpclient"
)

const (
	// SessionTTL is how long an idle session is kept.
	SessionTTL = 24 * time.Hour

	lockMargin = 15 * time.Second
)

// DefaultLockTTL covers one recalculation made with the default client
// settings.
var DefaultLockTTL = LockTTLFor(httpclient.DefaultTimeout, httpclient.DefaultMaxRetries, httpclient.DefaultBackoffCap)

// LockTTLFor returns how long the busy lock must live so that it outlasts a
// recalculation by a client with the given per-attempt timeout, retry count
// and backoff cap. A crashed holder keeps the session busy at most this long.
func LockTTLFor(timeout time.Duration, retries int, backoffCap time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = httpclient.DefaultTimeout
	}
	if retries < 0 {
		retries = 0
	}
	return timeout*time.Duration(retries+1) + backoffCap*time.Duration(retries) + lockMargin
}

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("exclusion session not found")

// Store persists session snapshots between requests.
type Store interface {
	Save(ctx context.Context, id string, state *State) error
	Load(ctx context.Context, id string) (*State, error)
	Delete(ctx context.Context, id string) error
	// CompareAndSave writes state only while the stored generation equals
	// generation. It fails with ErrSuperseded when a Reset got there first
	// and with ErrSessionNotFound once the session is closed.
	CompareAndSave(ctx context.Context, id string, state *State, generation uint64) error
	// Lock marks the session busy. It fails with ErrBusy when another
	// caller holds it.
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// RedisStore keeps sessions as JSON in Redis.
type RedisStore struct {
	redis   *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
	logger  *zap.Logger
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithLockTTL sets how long the busy lock lives. Use LockTTLFor with the
// settings of the client the sessions recalculate through.
func WithLockTTL(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

// WithStoreLogger sets the logger for failures that cannot be returned.
func WithStoreLogger(logger *zap.Logger) RedisStoreOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		redis:   client,
		ttl:     SessionTTL,
		lockTTL: DefaultLockTTL,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(id string) string { return fmt.Sprintf("exclusion:session:%s", id) }
func lockKey(id string) string    { return fmt.Sprintf("exclusion:lock:%s", id) }

// Save writes the session and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, id string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}
	return nil
}

// CompareAndSave writes the session inside a WATCH transaction on its key.
func (s *RedisStore) CompareAndSave(ctx context.Context, id string, state *State, generation uint64) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKey(id)
	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get session from Redis: %w", err)
		}
		stored, err := storedGeneration(current)
		if err != nil {
			return err
		}
		if stored != generation {
			return ErrSuperseded
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrSuperseded
	}
	if err != nil && !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSuperseded) {
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}
	return err
}

// Load reads a session.
func (s *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	data, err := s.redis.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &state, nil
}

// Delete removes a session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, sessionKey(id), lockKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}

// releaseLock deletes the lock only if it still carries our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock takes the busy lock with SETNX.
func (s *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	token := uuid.NewString()
	ok, err := s.redis.SetNX(ctx, lockKey(id), token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseLock.Run(ctx, s.redis, []string{lockKey(id)}, token).Err(); err != nil {
			s.logger.Warn("failed to release session lock", zap.String("session_id", id), zap.Error(err))
		}
	}, nil
}

// MemoryStore keeps sessions in process. It is used by tests and when
// Redis is not configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	locks    map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		locks:    make(map[string]struct{}),
	}
}

// Save stores a copy of state.
func (m *MemoryStore) Save(_ context.Context, id string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = data
	return nil
}

// Load returns a copy of the stored state.
func (m *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	data, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &state, nil
}

// CompareAndSave stores a copy of state if the generation still matches.
func (m *MemoryStore) CompareAndSave(_ context.Context, id string, state *State, generation uint64) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	stored, err := storedGeneration(current)
	if err != nil {
		return err
	}
	if stored != generation {
		return ErrSuperseded
	}
	m.sessions[id] = data
	return nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.locks, id)
	return nil
}

// Lock marks id busy.
func (m *MemoryStore) Lock(_ context.Context, id string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[id]; held {
		return nil, ErrBusy
	}
	m.locks[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.locks, id)
			m.mu.Unlock()
		})
	}, nil
}

func storedGeneration(data []byte) (uint64, error) {
	var head struct {
		Generation uint64 `json:"generation"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return head.Generation, nil
}
