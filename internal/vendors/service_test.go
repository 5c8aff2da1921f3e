package vendors

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/types"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func mustCreateUser(t *testing.T, conn *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{ExternalID: uuid.NewString(), Email: email, RoleID: uuid.New()}
	if err := conn.Omit("Role", "Vendor").Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestEnsureProfileDisplayNameChain(t *testing.T) {
	cases := []struct {
		name  string
		hints ProfileHints
		email string
		want  string
	}{
		{"full name", ProfileHints{FullName: "Tienda Ana", Username: "ana"}, "ana@example.com", "Tienda Ana"},
		{"username", ProfileHints{Username: "ana_store"}, "ana@example.com", "ana_store"},
		{"email local part", ProfileHints{}, "ana.lopez@example.com", "ana.lopez"},
		{"default", ProfileHints{}, "", "Vendedor"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, conn := newTestService(t)
			user := mustCreateUser(t, conn, tc.email)
			profile, err := svc.EnsureProfile(context.Background(), user, tc.hints)
			if err != nil {
				t.Fatalf("ensure profile: %v", err)
			}
			if profile.DisplayName != tc.want {
				t.Fatalf("expected display name %q, got %q", tc.want, profile.DisplayName)
			}
		})
	}
}

func TestEnsureProfileIsIdempotent(t *testing.T) {
	svc, conn := newTestService(t)
	user := mustCreateUser(t, conn, "ana@example.com")
	ctx := context.Background()

	first, err := svc.EnsureProfile(ctx, user, ProfileHints{FullName: "Ana"})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.EnsureProfile(ctx, user, ProfileHints{FullName: "Someone Else"})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID != second.ID || second.DisplayName != "Ana" {
		t.Fatalf("expected the existing profile, got %+v", second)
	}
}

func TestEnsureProfileSlugCountSuffix(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	want := []string{"tienda-ana", "tienda-ana-2", "tienda-ana-3"}
	for i, expected := range want {
		user := mustCreateUser(t, conn, "u@example.com")
		profile, err := svc.EnsureProfile(ctx, user, ProfileHints{FullName: "Tienda Ana"})
		if err != nil {
			t.Fatalf("ensure %d: %v", i, err)
		}
		if profile.Slug != expected {
			t.Fatalf("expected slug %q, got %q", expected, profile.Slug)
		}
	}
}

func TestEnsureProfileIgnoresLongerSlugs(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnsureProfile(ctx, mustCreateUser(t, conn, "a@example.com"), ProfileHints{FullName: "Tienda Ana Norte"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first.Slug != "tienda-ana-norte" {
		t.Fatalf("unexpected slug %q", first.Slug)
	}
	second, err := svc.EnsureProfile(ctx, mustCreateUser(t, conn, "b@example.com"), ProfileHints{FullName: "Tienda Ana"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if second.Slug != "tienda-ana" {
		t.Fatalf("expected unsuffixed slug, got %q", second.Slug)
	}
}

func TestEnsureProfileFallbackSlug(t *testing.T) {
	svc, conn := newTestService(t)
	user := mustCreateUser(t, conn, "")
	profile, err := svc.EnsureProfile(context.Background(), user, ProfileHints{FullName: "日本"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !regexp.MustCompile(`^vendedor-[0-9a-f]{5}$`).MatchString(profile.Slug) {
		t.Fatalf("unexpected fallback slug %q", profile.Slug)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := mustCreateUser(t, conn, "ana@example.com")
	profile, err := svc.EnsureProfile(ctx, user, ProfileHints{FullName: "Ana"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	bio := "  Ropa y calzado  "
	site := "https://ana.example"
	dto, err := svc.Update(ctx, profile.ID, UpdateProfileInput{
		Bio:     &bio,
		Website: types.Nullable[string]{Present: true, Value: &site},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if dto.Bio != "Ropa y calzado" || dto.Website == nil || *dto.Website != site {
		t.Fatalf("unexpected profile %+v", dto)
	}
	if dto.Slug != profile.Slug {
		t.Fatalf("slug must be stable, got %q", dto.Slug)
	}

	dto, err = svc.Update(ctx, profile.ID, UpdateProfileInput{Website: types.Nullable[string]{Present: true}})
	if err != nil {
		t.Fatalf("clear website: %v", err)
	}
	if dto.Website != nil {
		t.Fatalf("expected website cleared, got %v", *dto.Website)
	}

	blank := "  "
	if _, err := svc.Update(ctx, profile.ID, UpdateProfileInput{DisplayName: &blank}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Update(ctx, uuid.New(), UpdateProfileInput{}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateProfileRejectsForeignKeys(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	profile, err := svc.EnsureProfile(ctx, mustCreateUser(t, conn, "ana@example.com"), ProfileHints{FullName: "Ana"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	foreign := uuid.NewString() + "/avatar.png"
	_, err = svc.Update(ctx, profile.ID, UpdateProfileInput{AvatarKey: types.Nullable[string]{Present: true, Value: &foreign}})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	own := profile.ID.String() + "/banner.png"
	if _, err := svc.Update(ctx, profile.ID, UpdateProfileInput{BannerKey: types.Nullable[string]{Present: true, Value: &own}}); err != nil {
		t.Fatalf("update own key: %v", err)
	}
	var stored models.VendorProfile
	if err := conn.First(&stored, "id = ?", profile.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.BannerKey == nil || *stored.BannerKey != own || stored.AvatarKey != nil {
		t.Fatalf("unexpected stored keys avatar=%v banner=%v", stored.AvatarKey, stored.BannerKey)
	}
}

func TestGetBySlugNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.GetBySlug(context.Background(), "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
