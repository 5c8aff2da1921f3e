package product

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/internal/access"
	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	"github.com/angelmondragon/mercado-backend/pkg/enums"
)

type recordingRemover struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingRemover) RemoveMany(_ context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys...)
	return nil
}

type categoryLookup struct {
	conn *gorm.DB
}

func (c categoryLookup) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := c.conn.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

type testEnv struct {
	conn    *gorm.DB
	repo    *Repository
	svc     *service
	remover *recordingRemover
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	remover := &recordingRemover{}
	svc, err := NewService(repo, db.Wrap(conn), categoryLookup{conn: conn}, remover, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	env := &testEnv{
		conn:    conn,
		repo:    repo,
		svc:     svc.(*service),
		remover: remover,
		now:     time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
	}
	env.svc.now = func() time.Time { return env.now }
	return env
}

func mustVendor(t *testing.T, conn *gorm.DB, name string) *models.VendorProfile {
	t.Helper()
	phone := "5215550001111"
	user := &models.User{ExternalID: uuid.NewString(), Email: name + "@example.com", Phone: &phone, RoleID: uuid.New()}
	if err := conn.Omit("Role", "Vendor").Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	vendor := &models.VendorProfile{UserID: user.ID, DisplayName: name, Slug: name}
	if err := conn.Omit("User").Create(vendor).Error; err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	return vendor
}

func mustCategory(t *testing.T, conn *gorm.DB, name string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: name}
	if err := conn.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

type productOpt func(*models.Product)

func withStock(n int) productOpt { return func(p *models.Product) { p.Stock = n } }
func withSales(n int) productOpt { return func(p *models.Product) { p.SalesCount = n } }
func withCategory(id uuid.UUID) productOpt {
	return func(p *models.Product) { p.CategoryID = &id }
}
func withStatus(s enums.ProductStatus) productOpt {
	return func(p *models.Product) { p.Status = s }
}
func withDescription(d string) productOpt { return func(p *models.Product) { p.Description = d } }

func mustProduct(t *testing.T, conn *gorm.DB, vendor *models.VendorProfile, name string, opts ...productOpt) *models.Product {
	t.Helper()
	p := &models.Product{
		VendorID:     vendor.ID,
		Name:         name,
		Slug:         name,
		RegularPrice: decimal.RequireFromString("100"),
		Stock:        1,
		Status:       enums.ProductStatusPublished,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := conn.Omit("Vendor", "Brand", "Category", "Images", "Variants").Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func owner(vendor *models.VendorProfile) access.Actor {
	id := vendor.ID
	return access.Actor{UserID: vendor.UserID, VendorID: &id}
}

func rootActor() access.Actor {
	return access.Actor{UserID: uuid.New(), Root: true}
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int { return &v }

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}
