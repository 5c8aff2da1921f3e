package models

import "github.com/google/uuid"

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model in dependency order; used by AutoMigrate in tests and dev.
func All() []any {
	return []any{
		&Role{},
		&User{},
		&VendorProfile{},
		&Category{},
		&Brand{},
		&Product{},
		&ProductImage{},
		&ProductVariant{},
		&ProductSale{},
		&ProductEvent{},
		&CatalogShareLink{},
	}
}
