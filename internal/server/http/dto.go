package http

import (
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/shopspring/decimal"
)

type CreateShopRequest struct {
	Name     string            `json:"name" validate:"required,max=128"`
	Password string            `json:"password" validate:"required,min=4"`
	Config   map[string]string `json:"config"`
	CopyFrom string            `json:"copy_from" validate:"omitempty,nefield=Name"`
}

type UpsertProductRequest struct {
	ProductID string           `json:"product_id" validate:"omitempty,max=64"`
	Shop      string           `json:"shop" validate:"required_with=Price"`
	Barcode   string           `json:"barcode" validate:"required,max=64"`
	Brand     string           `json:"brand" validate:"max=128"`
	Category  string           `json:"category" validate:"max=128"`
	Flavor    string           `json:"flavor" validate:"max=128"`
	Price     *decimal.Decimal `json:"price"`
}

func (r UpsertProductRequest) fields() models.ProductFields {
	return models.ProductFields{Barcode: r.Barcode, Brand: r.Brand, Category: r.Category, Flavor: r.Flavor}
}
