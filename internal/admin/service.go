package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercado-backend/internal/users"
	"github.com/angelmondragon/mercado-backend/internal/vendors"
	"github.com/angelmondragon/mercado-backend/pkg/db"
	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
	"github.com/angelmondragon/mercado-backend/pkg/storage"
)

const (
	lowStockThreshold = 5
	lowStockLimit     = 5
	topProductsLimit  = 5
	recentSalesLimit  = 14
	listLimit         = 100
)

// Service exposes root reporting and account removal, plus the vendor dashboard.
type Service interface {
	Overview(ctx context.Context) (*OverviewDTO, error)
	DashboardStats(ctx context.Context, vendorID uuid.UUID) (*DashboardDTO, error)
	ListUsers(ctx context.Context) ([]users.UserDTO, error)
	ListVendors(ctx context.Context) ([]vendors.VendorDTO, error)
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error
}

type objectStore interface {
	RemoveMany(ctx context.Context, keys []string) error
	KeyFor(raw string) (string, bool)
}

type service struct {
	repo     *Repository
	users    *users.Repository
	vendors  *vendors.Repository
	dbClient *db.Client
	storage  objectStore
	logg     *logger.Logger
}

// NewService wires the admin service.
func NewService(repo *Repository, usersRepo *users.Repository, vendorsRepo *vendors.Repository, dbClient *db.Client, store objectStore, logg *logger.Logger) (Service, error) {
	switch {
	case repo == nil:
		return nil, fmt.Errorf("admin repository required")
	case usersRepo == nil:
		return nil, fmt.Errorf("users repository required")
	case vendorsRepo == nil:
		return nil, fmt.Errorf("vendors repository required")
	case dbClient == nil:
		return nil, fmt.Errorf("db client required")
	case store == nil:
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     repo,
		users:    usersRepo,
		vendors:  vendorsRepo,
		dbClient: dbClient,
		storage:  store,
		logg:     logg,
	}, nil
}

func (s *service) Overview(ctx context.Context) (*OverviewDTO, error) {
	var (
		out OverviewDTO
		err error
	)
	if out.Users, err = s.users.Count(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	if out.Vendors, err = s.vendors.Count(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count vendors")
	}
	if out.Products, err = s.repo.CountProducts(ctx, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}
	if out.Events, err = s.repo.CountEvents(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count events")
	}
	return &out, nil
}

func (s *service) DashboardStats(ctx context.Context, vendorID uuid.UUID) (*DashboardDTO, error) {
	var (
		out DashboardDTO
		err error
	)
	if out.Products, err = s.repo.CountProducts(ctx, &vendorID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}
	if out.PendingEvents, err = s.repo.CountPendingEvents(ctx, vendorID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending events")
	}
	if out.SoldQuantity, out.Revenue, err = s.repo.SalesTotals(ctx, vendorID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum sales")
	}
	if out.LowStock, err = s.repo.LowStock(ctx, vendorID, lowStockThreshold, lowStockLimit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	if out.TopProducts, err = s.repo.TopProducts(ctx, vendorID, topProductsLimit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list top products")
	}
	if out.RecentSales, err = s.repo.RecentSales(ctx, vendorID, recentSalesLimit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent sales")
	}
	return &out, nil
}

func (s *service) ListUsers(ctx context.Context) ([]users.UserDTO, error) {
	rows, err := s.users.List(ctx, listLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]users.UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *users.FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) ListVendors(ctx context.Context) ([]vendors.VendorDTO, error) {
	rows, err := s.vendors.List(ctx, listLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	out := make([]vendors.VendorDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *vendors.FromModel(&rows[i]))
	}
	return out, nil
}

// DeleteUser removes a user and, when present, every row their vendor
// profile owns. Stored objects are removed best-effort before the rows go.
func (s *service) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete your own account")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	ctx = s.logg.WithField(ctx, "deleted_user_id", userID.String())
	if user.Vendor != nil {
		keys, err := s.repo.VendorImageKeys(ctx, user.Vendor.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load image keys")
		}
		keys = append(keys, s.profileKeys(user.Vendor)...)
		_ = s.storage.RemoveMany(ctx, storage.FilterOwned(keys, user.Vendor.ID))
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		if user.Vendor != nil {
			if err := s.repo.WithTx(tx).DeleteVendorData(ctx, user.Vendor.ID); err != nil {
				return err
			}
		}
		return s.users.WithTx(tx).Delete(ctx, user.ID)
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}

	s.logg.Info(ctx, "user deleted")
	return nil
}

func (s *service) profileKeys(v *models.VendorProfile) []string {
	var keys []string
	collect := func(key, url *string) {
		if key != nil && *key != "" {
			keys = append(keys, *key)
			return
		}
		if url != nil {
			if k, ok := s.storage.KeyFor(*url); ok {
				keys = append(keys, k)
			}
		}
	}
	collect(v.AvatarKey, v.AvatarURL)
	collect(v.BannerKey, v.BannerURL)
	return keys
}
