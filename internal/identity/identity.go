// Package identity maps identity provider sessions onto platform users.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercado-backend/pkg/auth"
	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
)

// ExternalIdentity is what the identity provider tells us about the caller.
type ExternalIdentity struct {
	ExternalID string
	Email      string
	FullName   string
	Username   string
}

// FromClaims converts verified token claims.
func FromClaims(c *auth.IdentityClaims) ExternalIdentity {
	if c == nil {
		return ExternalIdentity{}
	}
	return ExternalIdentity{
		ExternalID: strings.TrimSpace(c.Subject),
		Email:      c.PrimaryEmail(),
		FullName:   strings.TrimSpace(c.Name),
		Username:   strings.TrimSpace(c.Username),
	}
}

// Session is the resolved caller for one request.
type Session struct {
	User     *models.User
	Identity ExternalIdentity
}

// UserID returns the platform user id.
func (s *Session) UserID() uuid.UUID {
	if s == nil || s.User == nil {
		return uuid.Nil
	}
	return s.User.ID
}

// IsRoot reports whether the caller holds the root role.
func (s *Session) IsRoot() bool {
	return s != nil && s.User.IsRoot()
}

type userStore interface {
	EnsureRoles(ctx context.Context) error
	FindRole(ctx context.Context, name enums.RoleName) (*models.Role, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	TouchEmail(ctx context.Context, id uuid.UUID, email string, at time.Time) error
}

// Service resolves sessions, creating users on first sight.
type Service struct {
	users       userStore
	now         func() time.Time
	rolesSeeded atomic.Bool
}

// NewService constructs the identity adapter.
func NewService(users userStore) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store required")
	}
	return &Service{users: users, now: time.Now}, nil
}

var errMissingExternalID = errors.New("external identity has no id")

// Resolve returns the platform session for ext. New users get the default
// role; existing users only have their email and updated_at refreshed.
func (s *Service) Resolve(ctx context.Context, ext ExternalIdentity) (*Session, error) {
	if ext.ExternalID == "" {
		return nil, errMissingExternalID
	}
	if err := s.ensureRoles(ctx); err != nil {
		return nil, fmt.Errorf("ensure roles: %w", err)
	}

	user, err := s.users.FindByExternalID(ctx, ext.ExternalID)
	switch {
	case err == nil:
		now := s.now().UTC()
		if err := s.users.TouchEmail(ctx, user.ID, ext.Email, now); err != nil {
			return nil, fmt.Errorf("sync user email: %w", err)
		}
		user.Email = ext.Email
		user.UpdatedAt = now
	case db.IsNotFound(err):
		user, err = s.create(ctx, ext)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("load user: %w", err)
	}

	return &Session{User: user, Identity: ext}, nil
}

func (s *Service) create(ctx context.Context, ext ExternalIdentity) (*models.User, error) {
	role, err := s.users.FindRole(ctx, enums.DefaultRole)
	if err != nil {
		return nil, fmt.Errorf("load default role: %w", err)
	}
	user := &models.User{
		ExternalID: ext.ExternalID,
		Email:      ext.Email,
		RoleID:     role.ID,
		Role:       *role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("create user: %w", err)
		}
		// lost the race to a concurrent request
		existing, findErr := s.users.FindByExternalID(ctx, ext.ExternalID)
		if findErr != nil {
			return nil, fmt.Errorf("reload user after conflict: %w", findErr)
		}
		return existing, nil
	}
	return user, nil
}

func (s *Service) ensureRoles(ctx context.Context) error {
	if s.rolesSeeded.Load() {
		return nil
	}
	if err := s.users.EnsureRoles(ctx); err != nil {
		return err
	}
	s.rolesSeeded.Store(true)
	return nil
}
