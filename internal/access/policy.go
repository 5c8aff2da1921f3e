// Package access holds the ownership rules shared by vendor-facing services.
package access

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/mercado-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercado-backend/pkg/errors"
)

// Actor is the authenticated caller as seen by domain services.
type Actor struct {
	UserID   uuid.UUID
	Root     bool
	VendorID *uuid.UUID
}

// HasVendor reports whether the caller has a vendor profile.
func (a Actor) HasVendor() bool {
	return a.VendorID != nil && *a.VendorID != uuid.Nil
}

// OwnsVendor reports whether vendorID is the caller's own profile.
func (a Actor) OwnsVendor(vendorID uuid.UUID) bool {
	return a.HasVendor() && *a.VendorID == vendorID
}

// CanManage grants root, or the vendor owning the resource.
func CanManage(a Actor, ownerVendorID uuid.UUID) bool {
	return a.Root || a.OwnsVendor(ownerVendorID)
}

// CanManageProduct applies CanManage to a product.
func CanManageProduct(a Actor, product *models.Product) bool {
	return product != nil && CanManage(a, product.VendorID)
}

// CanManageEvent applies CanManage to a purchase-intent event.
func CanManageEvent(a Actor, event *models.ProductEvent) bool {
	return event != nil && CanManage(a, event.VendorID)
}

// NotOwned is the forbidden error returned when CanManage fails for resource.
func NotOwned(resource string) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, resource+" does not belong to vendor")
}

// ScopeVendor returns the vendor filter a listing must apply: non-root callers
// are pinned to their own profile, root may pass requested (nil means all).
func ScopeVendor(a Actor, requested *uuid.UUID) (*uuid.UUID, error) {
	if a.Root {
		return requested, nil
	}
	if !a.HasVendor() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor profile required")
	}
	own := *a.VendorID
	return &own, nil
}
