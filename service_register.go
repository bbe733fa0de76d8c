package credcore

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/stockroomlabs/credcore/password"
)

// Register validates the input, evaluates the password policy, and creates
// the identity inside the unit of work before issuing the first token pair.
// The audit event is emitted only once the create has committed.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if s == nil {
		return nil, ErrNotReady
	}

	if err := validateRegisterInput(&input); err != nil {
		return nil, err
	}

	report := password.Evaluate(input.Password)
	if !report.Valid {
		return nil, &PolicyError{Report: report}
	}

	email := normalizeEmail(input.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrIdentityNotFound) {
		return nil, s.userStoreFailure(ctx, "find by email", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, s.userStoreFailure(ctx, "hash password", err)
	}

	var identity *Identity
	err = s.uow.Run(ctx, func(ctx context.Context) error {
		created, err := s.users.Create(ctx, CreateIdentityInput{
			Name:         input.Name,
			Email:        email,
			PasswordHash: hash,
			Role:         input.Role,
			Status:       StatusActive,
		})
		if err != nil {
			return err
		}
		identity = created
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, s.userStoreFailure(ctx, "create identity", err)
	}

	s.emit(ctx, ActionRegister, identity.ID, email, true, nil, map[string]string{
		"role":     string(identity.Role),
		"strength": string(report.Strength),
	})

	pair, err := s.authority.IssuePair(identity.ID, identity.Email, string(identity.Role))
	if err != nil {
		return nil, s.signFailure(ctx, err)
	}

	return &AuthResult{Identity: identity.Summary(), Tokens: *pair}, nil
}

func validateRegisterInput(input *RegisterInput) error {
	fields := map[string]string{}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		fields["name"] = "name is required"
	}
	// ParseAddress also accepts display-name forms like "A <a@b.com>";
	// only a bare address is a valid identity email.
	trimmedEmail := strings.TrimSpace(input.Email)
	if addr, err := mail.ParseAddress(trimmedEmail); err != nil || addr.Address != trimmedEmail {
		fields["email"] = "invalid email address"
	}
	if input.Role == "" {
		input.Role = RoleUser
	}
	if !input.Role.valid() {
		fields["role"] = "unknown role"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
