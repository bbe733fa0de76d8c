package credcore

import (
	"context"
	"io"
	"time"

	"github.com/stockroomlabs/credcore/internal/audit"
	"github.com/stockroomlabs/credcore/token"
)

// Role is the authorization role carried in identity records and tokens.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func (r Role) valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Status is the lifecycle state of an identity. It gates login
// independently of the lockout state.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
)

// Identity is the persistent account record. It is owned by the host's user
// store; this core only reads it and requests targeted updates.
type Identity struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Status       Status
	CreatedAt    time.Time
	LastLoginAt  time.Time
}

// Summary strips the identity down to what callers may see. The password
// hash never leaves this package.
func (i *Identity) Summary() IdentitySummary {
	return IdentitySummary{
		ID:          i.ID,
		Email:       i.Email,
		Name:        i.Name,
		Role:        i.Role,
		Status:      i.Status,
		LastLoginAt: i.LastLoginAt,
	}
}

// IdentitySummary is the caller-visible projection of an identity.
type IdentitySummary struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	Status      Status    `json:"status"`
	LastLoginAt time.Time `json:"last_login_at,omitempty"`
}

// TokenPair is re-exported from the token package for callers that only
// import the root package.
type TokenPair = token.Pair

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Identity IdentitySummary
	Tokens   TokenPair
}

// RegisterInput is the input for Service.Register.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// CreateIdentityInput is what the service asks the user store to persist.
// The password has already been hashed and the email normalized.
type CreateIdentityInput struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Status       Status
}

// UserStore is the persistent identity store the host must supply.
// Implementations return ErrIdentityNotFound for missing records and
// ErrEmailExists from Create on duplicate email.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id string) (*Identity, error)
	Create(ctx context.Context, input CreateIdentityInput) (*Identity, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

// UnitOfWork wraps the persistent mutations of an operation so they commit
// or roll back together. Audit events are emitted only after Run returns
// success and are delivered asynchronously with at-most-once semantics; a
// host that needs audit records inside the transaction appends them from
// its own UserStore implementation. NoopUnitOfWork serves hosts without
// transactional storage.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopUnitOfWork runs fn directly with no transactional boundary.
type NoopUnitOfWork struct{}

func (NoopUnitOfWork) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// AuditSink and AuditEvent are re-exported so hosts implement sinks without
// importing internal packages.
type (
	AuditSink  = audit.Sink
	AuditEvent = audit.Event
)

// NewJSONAuditSink returns a sink that writes one JSON event per line to w.
func NewJSONAuditSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}
