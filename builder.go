package credcore

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/stockroomlabs/credcore/internal/audit"
	"github.com/stockroomlabs/credcore/internal/rate"
	"github.com/stockroomlabs/credcore/internal/stores"
	"github.com/stockroomlabs/credcore/kv"
	"github.com/stockroomlabs/credcore/password"
	"github.com/stockroomlabs/credcore/token"
)

// Builder assembles a Service. The ephemeral store comes from either
// WithRedis or WithStore; everything else has a default except the user
// store and the signing secret.
type Builder struct {
	config    Config
	store     kv.Store
	redis     redis.UniversalClient
	users     UserStore
	uow       UnitOfWork
	auditSink AuditSink
	logger    *slog.Logger
	built     bool
}

// New starts a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration wholesale.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis backs the ephemeral store with a Redis client. The store is
// constructed at Build time so WithConfig and WithRedis may come in any order.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore supplies the ephemeral store directly. Tests and single-node
// hosts pass kv.NewMemory().
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithUserStore supplies the persistent identity store. Required.
func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

// WithUnitOfWork supplies the transactional wrapper for create/update +
// audit pairs. Defaults to NoopUnitOfWork.
func (b *Builder) WithUnitOfWork(uow UnitOfWork) *Builder {
	b.uow = uow
	return b
}

// WithAuditSink supplies the audit destination. Defaults to a no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger supplies the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates configuration and wires the Service. A Builder builds
// exactly once.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.config.validate(); err != nil {
		return nil, err
	}
	if b.store == nil && b.redis != nil {
		b.store = kv.NewRedis(b.redis, b.config.StorePrefix)
	}
	if b.store == nil {
		return nil, errors.New("ephemeral store is required: use WithRedis or WithStore")
	}
	if b.users == nil {
		return nil, errors.New("user store is required")
	}

	authority, err := token.NewAuthority(b.config.Tokens.authorityConfig())
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewHasher(b.config.Hasher)
	if err != nil {
		return nil, err
	}

	uow := b.uow
	if uow == nil {
		uow = NoopUnitOfWork{}
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	b.built = true

	return &Service{
		config:    b.config,
		users:     b.users,
		uow:       uow,
		authority: authority,
		hasher:    hasher,
		lockout: rate.NewLockout(b.store, rate.LockoutConfig{
			MaxAttempts:     b.config.Lockout.MaxAttempts,
			LockoutDuration: b.config.Lockout.LockoutDuration,
		}),
		window: rate.NewWindow(b.store, rate.WindowConfig{
			MaxRequests: b.config.Reset.MaxRequests,
			Window:      b.config.Reset.Window,
		}),
		denylist: stores.NewDenylist(b.store),
		tickets:  stores.NewResetTickets(b.store),
		audit: audit.NewDispatcher(audit.Config{
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, b.auditSink),
		logger: logger,
	}, nil
}
