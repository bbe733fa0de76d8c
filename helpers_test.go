package credcore

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/stockroomlabs/credcore/internal/audit"
	"github.com/stockroomlabs/credcore/password"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

// testHasherConfig keeps argon2 cheap enough for tests while staying above
// the package minimums.
func testHasherConfig() password.HasherConfig {
	return password.HasherConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Tokens.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Hasher = testHasherConfig()
	return cfg
}

// memUserStore is an in-memory UserStore for tests.
type memUserStore struct {
	mu      sync.Mutex
	byID    map[string]*Identity
	byEmail map[string]string
	nextID  int

	// failUpdates makes UpdatePasswordHash fail, for atomicity tests.
	failUpdates bool
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		byID:    map[string]*Identity{},
		byEmail: map[string]string{},
	}
}

func (m *memUserStore) FindByEmail(_ context.Context, email string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	clone := *m.byID[id]
	return &clone, nil
}

func (m *memUserStore) FindByID(_ context.Context, id string) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.byID[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	clone := *identity
	return &clone, nil
}

func (m *memUserStore) Create(_ context.Context, input CreateIdentityInput) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[input.Email]; exists {
		return nil, ErrEmailExists
	}

	m.nextID++
	identity := &Identity{
		ID:           "id-" + strconv.Itoa(m.nextID),
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Status:       input.Status,
		CreatedAt:    time.Now(),
	}
	m.byID[identity.ID] = identity
	m.byEmail[identity.Email] = identity.ID

	clone := *identity
	return &clone, nil
}

func (m *memUserStore) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpdates {
		return ErrStoreUnavailable
	}
	identity, ok := m.byID[id]
	if !ok {
		return ErrIdentityNotFound
	}
	identity.PasswordHash = passwordHash
	return nil
}

func (m *memUserStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.byID[id]
	if !ok {
		return ErrIdentityNotFound
	}
	identity.LastLoginAt = at
	return nil
}

func (m *memUserStore) setStatus(t *testing.T, id string, status Status) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.byID[id]
	if !ok {
		t.Fatalf("no identity %q", id)
	}
	identity.Status = status
}

type testEnv struct {
	service *Service
	users   *memUserStore
	redis   *miniredis.Miniredis
	sink    *audit.ChannelSink
}

func newTestService(t *testing.T) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	users := newMemUserStore()
	sink := audit.NewChannelSink(64)

	service, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		WithUserStore(users).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(service.Close)

	return &testEnv{service: service, users: users, redis: mr, sink: sink}
}

// seedIdentity registers an active identity directly through the store with
// a real hash, bypassing Register.
func (env *testEnv) seedIdentity(t *testing.T, email, plaintext string, role Role) *Identity {
	t.Helper()

	hasher, err := password.NewHasher(testHasherConfig())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	hash, err := hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	identity, err := env.users.Create(context.Background(), CreateIdentityInput{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       StatusActive,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return identity
}
