package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is the canonical storefront listing. Orders snapshot name and price
// at placement time rather than joining back to this row.
type Product struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name          string         `gorm:"column:name;not null"`
	Description   *string        `gorm:"column:description"`
	Images        pq.StringArray `gorm:"column:images;type:text[]"`
	CategoryID    *uuid.UUID     `gorm:"column:category_id;type:uuid;index"`
	SubCategoryID *uuid.UUID     `gorm:"column:sub_category_id;type:uuid;index"`
	Unit          *string        `gorm:"column:unit"`
	Stock         int            `gorm:"column:stock;not null;default:0"`
	PriceCents    int            `gorm:"column:price_cents;not null"`
	DiscountCents int            `gorm:"column:discount_cents;not null;default:0"`
	Published     bool           `gorm:"column:published;not null;default:true"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePriceCents is the unit price snapshotted onto order line items.
func (p Product) EffectivePriceCents() int {
	price := p.PriceCents - p.DiscountCents
	if price < 0 {
		return 0
	}
	return price
}
