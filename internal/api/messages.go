package api

import (
	"time"

	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/shopspring/decimal"
)

// PingStatusOK is the status of a healthy server.
const PingStatusOK = "OK"

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type LoginRequest struct {
	Shop     string `json:"shop"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type CheckShopRequest struct {
	Shop string `json:"shop"`
}

type CheckShopResponse struct {
	Shop models.Shop `json:"shop"`
}

type ListShopsRequest struct{}

type ListShopsResponse struct {
	Shops []string `json:"shops"`
}

// UpsertProductRequest writes product metadata and, when Price is set, the
// shop's price. An empty ProductID asks the server to assign one.
type UpsertProductRequest struct {
	ProductID string               `json:"product_id,omitempty"`
	Shop      string               `json:"shop"`
	Fields    models.ProductFields `json:"fields"`
	Price     *decimal.Decimal     `json:"price,omitempty"`
}

type UpsertProductResponse struct {
	Revision models.Revision `json:"revision"`
}

type RemovePriceRequest struct {
	ProductID string `json:"product_id"`
	Shop      string `json:"shop"`
}

type RemovePriceResponse struct{}

// QueryDeltaRequest asks for products changed after Since, or all products
// when Since is nil. An empty Shop means every shop.
type QueryDeltaRequest struct {
	Shop  string     `json:"shop,omitempty"`
	Since *time.Time `json:"since,omitempty"`
}

type QueryDeltaResponse struct {
	Products []models.Product `json:"products"`
}

type ListAllIDsRequest struct{}

type ListAllIDsResponse struct {
	Keys []models.ProductKey `json:"keys"`
}

type FindByBarcodeRequest struct {
	Barcode string `json:"barcode"`
}

type FindByBarcodeResponse struct {
	Products []models.Product `json:"products"`
}

type AppendSaleRequest struct {
	Shop string      `json:"shop"`
	Sale models.Sale `json:"sale"`
}

type AppendSaleResponse struct{}

type QuerySalesRequest struct {
	Shop        string `json:"shop"`
	Limit       int    `json:"limit"`
	NewestFirst bool   `json:"newest_first"`
}

type QuerySalesResponse struct {
	Sales []models.Sale `json:"sales"`
}
