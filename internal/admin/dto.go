package admin

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverviewDTO carries platform-wide counters.
type OverviewDTO struct {
	Users    int64 `json:"users"`
	Vendors  int64 `json:"vendors"`
	Products int64 `json:"products"`
	Events   int64 `json:"events"`
}

// DashboardDTO summarizes one vendor's catalog and sales.
type DashboardDTO struct {
	Products      int64            `json:"products"`
	PendingEvents int64            `json:"pendingEvents"`
	SoldQuantity  int64            `json:"soldQuantity"`
	Revenue       decimal.Decimal  `json:"revenue"`
	LowStock      []ProductStatDTO `json:"lowStock"`
	TopProducts   []ProductStatDTO `json:"topProducts"`
	RecentSales   []SaleDTO        `json:"recentSales"`
}

// ProductStatDTO is a compact product row for dashboard widgets.
type ProductStatDTO struct {
	ID         uuid.UUID `json:"id" gorm:"column:id"`
	Name       string    `json:"name" gorm:"column:name"`
	Slug       string    `json:"slug" gorm:"column:slug"`
	Stock      int       `json:"stock" gorm:"column:stock"`
	SalesCount int       `json:"salesCount" gorm:"column:sales_count"`
}

// SaleDTO is one booked sale with its product name.
type SaleDTO struct {
	ID          uuid.UUID       `json:"id" gorm:"column:id"`
	ProductID   uuid.UUID       `json:"productId" gorm:"column:product_id"`
	ProductName string          `json:"productName" gorm:"column:product_name"`
	Quantity    int             `json:"quantity" gorm:"column:quantity"`
	Amount      decimal.Decimal `json:"amount" gorm:"column:amount"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"column:created_at"`
}
