package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SyncStatus is the local dirty state of a product or sale row.
type SyncStatus string

const (
	StatusSynced   SyncStatus = "synced"
	StatusModified SyncStatus = "modified"
	StatusPending  SyncStatus = "pending"
)

// ProductFields are the shop-independent attributes of a product.
type ProductFields struct {
	Barcode  string `json:"barcode"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
	Flavor   string `json:"flavor"`
}

// Product is a catalog record as stored remotely.
type Product struct {
	ID string `json:"product_id"`
	ProductFields
	Prices      map[string]decimal.Decimal `json:"prices,omitempty"`
	LastUpdated time.Time                  `json:"last_updated"`
}

// PriceFor returns the price the given shop charges for p.
func (p *Product) PriceFor(shop string) (decimal.Decimal, bool) {
	if p.Prices == nil {
		return decimal.Decimal{}, false
	}
	v, ok := p.Prices[shop]
	return v, ok
}

// Listed reports whether the product belongs to the shop's assortment.
func (p *Product) Listed(shop string) bool {
	_, ok := p.PriceFor(shop)
	return ok
}

// Clone returns a deep copy of p.
func (p Product) Clone() Product {
	out := p
	if p.Prices != nil {
		out.Prices = make(map[string]decimal.Decimal, len(p.Prices))
		for k, v := range p.Prices {
			out.Prices[k] = v
		}
	}
	return out
}

// LocalProduct is a product row in the device cache.
type LocalProduct struct {
	Product
	// Price is the resolved price for the active shop, nil when unlisted.
	Price      *decimal.Decimal
	SyncStatus SyncStatus
	Revision   int64
}

// ProductInfo is what the editor submits when creating or changing a product.
type ProductInfo struct {
	ProductID string          `json:"product_id" validate:"omitempty,max=64"`
	Barcode   string          `json:"barcode" validate:"required,max=64"`
	Brand     string          `json:"brand" validate:"max=128"`
	Category  string          `json:"category" validate:"max=128"`
	Flavor    string          `json:"flavor" validate:"max=128"`
	Price     decimal.Decimal `json:"price"`
}

// Fields returns the shop-independent part of the info.
func (i ProductInfo) Fields() ProductFields {
	return ProductFields{Barcode: i.Barcode, Brand: i.Brand, Category: i.Category, Flavor: i.Flavor}
}

// ProductKey is one element of the lightweight catalog enumeration.
type ProductKey struct {
	ID      string `json:"product_id"`
	Barcode string `json:"barcode"`
}

// Revision is returned by a remote product write.
type Revision struct {
	ProductID   string    `json:"product_id"`
	LastUpdated time.Time `json:"last_updated"`
}
