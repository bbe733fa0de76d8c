// Package token implements the signing authority for access, refresh, and
// password-reset tokens. Tokens are self-contained signed claim sets; no
// session table exists, so possession of a valid token is the capability.
package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type discriminates the three token kinds this authority issues. Every
// verification names the type it expects; a valid token of another kind
// is rejected.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
	TypeReset   Type = "password_reset"
)

// SigningMethod selects the signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Verification failure taxonomy. Callers may surface these generically but
// the distinction is kept for logging and audit.
var (
	ErrMalformed = errors.New("token: malformed token")
	ErrExpired   = errors.New("token: token expired")
	ErrNotActive = errors.New("token: token not yet active")
	ErrWrongType = errors.New("token: wrong token type")
)

// Config carries the signing secret, algorithm, and per-type TTLs. It is
// loaded once at startup and never mutated afterwards; there is no ambient
// process-wide secret.
type Config struct {
	SigningMethod SigningMethod
	// Secret is the HMAC key for hs256 or the ed25519 private key
	// (raw or PEM) for ed25519.
	Secret []byte
	// PublicKey is required for ed25519 verification; ignored for hs256.
	PublicKey []byte
	Issuer    string

	// AccessTTL defaults to 7 days. That is long for an access token in a
	// denylist-only revocation model; hosts with a stricter threat model
	// should shorten it.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	Leeway     time.Duration
}

// Claims is the signed claim set carried by every token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Type  Type   `json:"typ"`
	jwt.RegisteredClaims
}

// IdentityID returns the token subject.
func (c *Claims) IdentityID() string { return c.Subject }

// TokenID returns the jti. Empty for access tokens.
func (c *Claims) TokenID() string { return c.ID }

// Remaining reports the lifetime the token has left; zero or negative once
// expired. Used to bound denylist entry TTLs.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

// Pair bundles the access and refresh tokens returned to a caller.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Authority issues and verifies signed tokens.
type Authority struct {
	config Config
}

// NewAuthority validates cfg and returns an Authority.
func NewAuthority(cfg Config) (*Authority, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, errors.New("token: all TTLs must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token: invalid leeway")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) < 32 {
			return nil, errors.New("token: hs256 secret must be at least 32 bytes")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.Secret); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("token: unsupported signing method")
	}

	return &Authority{config: cfg}, nil
}

// IssueAccess mints an access token for the identity.
func (a *Authority) IssueAccess(identityID, email, role string) (string, error) {
	return a.issue(TypeAccess, identityID, email, role, a.config.AccessTTL, "")
}

// IssueRefresh mints a refresh token carrying a random jti so the token can
// be individually revoked on rotation.
func (a *Authority) IssueRefresh(identityID, email, role string) (string, error) {
	return a.issue(TypeRefresh, identityID, email, role, a.config.RefreshTTL, uuid.NewString())
}

// IssueReset mints a single-use password-reset token.
func (a *Authority) IssueReset(identityID, email string) (string, error) {
	return a.issue(TypeReset, identityID, email, "", a.config.ResetTTL, uuid.NewString())
}

// IssuePair mints a fresh access+refresh pair.
func (a *Authority) IssuePair(identityID, email, role string) (*Pair, error) {
	access, err := a.IssueAccess(identityID, email, role)
	if err != nil {
		return nil, err
	}
	refresh, err := a.IssueRefresh(identityID, email, role)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (a *Authority) issue(typ Type, identityID, email, role string, ttl time.Duration, jti string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    a.config.Issuer,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(a.signingMethod(), claims)
	key, err := a.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

// Verify checks structure, signature, expiry, and type. A token that is not
// three dot-separated segments is rejected before any parsing.
func (a *Authority) Verify(tokenStr string, want Type) (*Claims, error) {
	if strings.Count(tokenStr, ".") != 2 {
		return nil, ErrMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{a.signingMethod().Alg()}),
	}
	if a.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(a.config.Leeway))
	}
	if a.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(a.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != a.signingMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return a.verifyKey()
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrMalformed
	}
	if claims.Type != want {
		return nil, ErrWrongType
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotActive
	default:
		return ErrMalformed
	}
}

func (a *Authority) signingMethod() jwt.SigningMethod {
	if a.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (a *Authority) signKey() (interface{}, error) {
	if a.config.SigningMethod == MethodEd25519 {
		return parseEdPrivateKey(a.config.Secret)
	}
	return a.config.Secret, nil
}

func (a *Authority) verifyKey() (interface{}, error) {
	if a.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(a.config.PublicKey)
	}
	return a.config.Secret, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("token: invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("token: invalid ed25519 public key type")
	}
	return edKey, nil
}
