package product

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const searchLimit = 20

const searchSelect = `
SELECT p.id,
       p.name,
       p.slug,
       p.description,
       p.regular_price,
       p.sale_price,
       p.sale_expires_at,
       p.stock,
       v.id AS vendor_id,
       v.display_name AS vendor_display_name,
       v.slug AS vendor_slug,
       (SELECT i.url FROM product_images i
         WHERE i.product_id = p.id
         ORDER BY i.position ASC
         LIMIT 1) AS image_url
FROM products p
JOIN vendor_profiles v ON v.id = p.vendor_id
`

const fullTextSearchQuery = searchSelect + `
WHERE p.status = 'published'
  AND (p.search_vector @@ plainto_tsquery('simple', ?)
       OR p.name ILIKE ?
       OR p.description ILIKE ?)
ORDER BY p.stock DESC, p.sales_count DESC
LIMIT ?`

const patternSearchQuery = searchSelect + `
WHERE p.status = 'published'
  AND (LOWER(p.name) LIKE ? ESCAPE '\'
       OR LOWER(p.description) LIKE ? ESCAPE '\')
ORDER BY p.stock DESC, p.sales_count DESC
LIMIT ?`

type searchRow struct {
	ID                uuid.UUID           `gorm:"column:id"`
	Name              string              `gorm:"column:name"`
	Slug              string              `gorm:"column:slug"`
	Description       string              `gorm:"column:description"`
	RegularPrice      decimal.Decimal     `gorm:"column:regular_price"`
	SalePrice         decimal.NullDecimal `gorm:"column:sale_price"`
	SaleExpiresAt     *time.Time          `gorm:"column:sale_expires_at"`
	Stock             int                 `gorm:"column:stock"`
	VendorID          uuid.UUID           `gorm:"column:vendor_id"`
	VendorDisplayName string              `gorm:"column:vendor_display_name"`
	VendorSlug        string              `gorm:"column:vendor_slug"`
	ImageURL          *string             `gorm:"column:image_url"`
}

// Search runs the full text query on PostgreSQL and falls back to a
// case-insensitive pattern match when it errors or the dialect lacks it.
func (r *Repository) Search(ctx context.Context, query string) ([]SearchHitDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchHitDTO{}, nil
	}

	var rows []searchRow
	if r.Dialect() == "postgres" {
		pattern := "%" + likeEscaper.Replace(query) + "%"
		err := r.DB(ctx).Raw(fullTextSearchQuery, query, pattern, pattern, searchLimit).Scan(&rows).Error
		if err == nil {
			return toSearchHits(rows), nil
		}
		rows = nil
	}

	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	if err := r.DB(ctx).Raw(patternSearchQuery, pattern, pattern, searchLimit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return toSearchHits(rows), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func toSearchHits(rows []searchRow) []SearchHitDTO {
	out := make([]SearchHitDTO, 0, len(rows))
	for _, row := range rows {
		hit := SearchHitDTO{
			ID:            row.ID,
			Name:          row.Name,
			Slug:          row.Slug,
			Description:   row.Description,
			RegularPrice:  row.RegularPrice,
			SaleExpiresAt: row.SaleExpiresAt,
			Stock:         row.Stock,
			ImageURL:      row.ImageURL,
			Vendor: VendorRefDTO{
				ID:          row.VendorID,
				DisplayName: row.VendorDisplayName,
				Slug:        row.VendorSlug,
			},
		}
		if row.SalePrice.Valid {
			price := row.SalePrice.Decimal
			hit.SalePrice = &price
		}
		out = append(out, hit)
	}
	return out
}
