package vendors

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/slug"
	"github.com/angelmondragon/mercado-backend/pkg/storage"
	"github.com/angelmondragon/mercado-backend/pkg/types"
)

const (
	defaultDisplayName = "Vendedor"
	fallbackSlugPrefix = "vendedor"
	publicListLimit    = 50
)

// ProfileHints are the identity fields used to name a lazily created profile.
type ProfileHints struct {
	FullName string
	Username string
	Email    string
}

// UpdateProfileInput holds optional profile mutations. Nullable fields clear
// the column when sent as null.
type UpdateProfileInput struct {
	DisplayName *string
	Bio         *string
	WhatsApp    *string
	Website     types.Nullable[string]
	AvatarURL   types.Nullable[string]
	AvatarKey   types.Nullable[string]
	BannerURL   types.Nullable[string]
	BannerKey   types.Nullable[string]
}

// Service exposes vendor profile operations.
type Service interface {
	EnsureProfile(ctx context.Context, user *models.User, hints ProfileHints) (*models.VendorProfile, error)
	Update(ctx context.Context, vendorID uuid.UUID, input UpdateProfileInput) (*VendorDTO, error)
	GetBySlug(ctx context.Context, slug string) (*models.VendorProfile, error)
	ListPublic(ctx context.Context) ([]SummaryDTO, error)
	List(ctx context.Context, limit int) ([]VendorDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a vendors service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	return &service{repo: repo}, nil
}

// EnsureProfile returns the caller's vendor profile, provisioning it on first use.
func (s *service) EnsureProfile(ctx context.Context, user *models.User, hints ProfileHints) (*models.VendorProfile, error) {
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	existing, err := s.repo.FindByUserID(ctx, user.ID)
	if err == nil {
		return existing, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}

	name := displayName(hints, user.Email)
	base := slug.OrFallback(name, fallbackSlugPrefix)
	taken, err := s.repo.SlugsWithPrefix(ctx, base)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor slugs")
	}

	profile := &models.VendorProfile{
		UserID:      user.ID,
		DisplayName: name,
		Slug:        slug.Next(base, taken),
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor profile")
		}
		again, findErr := s.repo.FindByUserID(ctx, user.ID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "vendor profile could not be provisioned")
		}
		return again, nil
	}
	return profile, nil
}

func (s *service) Update(ctx context.Context, vendorID uuid.UUID, input UpdateProfileInput) (*VendorDTO, error) {
	profile, err := s.repo.FindByID(ctx, vendorID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}

	if err := validateKeys(profile.ID, input); err != nil {
		return nil, err
	}
	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "display name is required").
				WithDetails(map[string]string{"displayName": "is required"})
		}
		profile.DisplayName = name
	}
	if input.Bio != nil {
		profile.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.WhatsApp != nil {
		profile.WhatsApp = strings.TrimSpace(*input.WhatsApp)
	}
	applyNullable(&profile.Website, input.Website)
	applyNullable(&profile.AvatarURL, input.AvatarURL)
	applyNullable(&profile.AvatarKey, input.AvatarKey)
	applyNullable(&profile.BannerURL, input.BannerURL)
	applyNullable(&profile.BannerKey, input.BannerKey)

	if err := s.repo.Save(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor profile")
	}
	return FromModel(profile), nil
}

func (s *service) GetBySlug(ctx context.Context, value string) (*models.VendorProfile, error) {
	profile, err := s.repo.FindBySlug(ctx, strings.TrimSpace(value))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return profile, nil
}

func (s *service) ListPublic(ctx context.Context) ([]SummaryDTO, error) {
	rows, err := s.repo.List(ctx, publicListLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	out := make([]SummaryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *SummaryFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) List(ctx context.Context, limit int) ([]VendorDTO, error) {
	rows, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	out := make([]VendorDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// displayName picks full name, username, email local part, then the default.
func displayName(h ProfileHints, userEmail string) string {
	if v := strings.TrimSpace(h.FullName); v != "" {
		return v
	}
	if v := strings.TrimSpace(h.Username); v != "" {
		return v
	}
	email := strings.TrimSpace(h.Email)
	if email == "" {
		email = strings.TrimSpace(userEmail)
	}
	if local, _, ok := strings.Cut(email, "@"); ok && strings.TrimSpace(local) != "" {
		return strings.TrimSpace(local)
	}
	return defaultDisplayName
}

// validateKeys rejects avatar and banner keys that were not issued to vendorID.
func validateKeys(vendorID uuid.UUID, input UpdateProfileInput) error {
	details := map[string]string{}
	for field, v := range map[string]types.Nullable[string]{"avatarKey": input.AvatarKey, "bannerKey": input.BannerKey} {
		if v.Value == nil {
			continue
		}
		if key := strings.TrimSpace(*v.Value); key != "" && !storage.OwnedBy(key, vendorID) {
			details[field] = "must reference an upload of this vendor"
		}
	}
	if len(details) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func applyNullable(dst **string, v types.Nullable[string]) {
	if !v.Present {
		return
	}
	if v.Value == nil || strings.TrimSpace(*v.Value) == "" {
		*dst = nil
		return
	}
	trimmed := strings.TrimSpace(*v.Value)
	*dst = &trimmed
}
