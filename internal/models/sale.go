package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one position of a sale.
type LineItem struct {
	ProductID   string          `json:"product_id,omitempty"`
	Barcode     string          `json:"barcode"`
	Description string          `json:"description,omitempty"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Sale is a finalized sale. Sales are never edited after creation.
type Sale struct {
	Shop          string          `json:"shop_name"`
	Timestamp     time.Time       `json:"timestamp"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	PaymentMethod string          `json:"payment_method"`
	LineItems     []LineItem      `json:"line_items"`
}

// LocalSale is a sale row in the device queue. The serialized line items and
// price are kept verbatim so a damaged row can be detected and skipped.
type LocalSale struct {
	ID            int64
	Shop          string
	Timestamp     time.Time
	FinalPrice    string
	PaymentMethod string
	LineItems     string
	SyncStatus    SyncStatus
}

// Decode parses the stored columns into a Sale.
func (s LocalSale) Decode() (Sale, error) {
	price, err := decimal.NewFromString(s.FinalPrice)
	if err != nil {
		return Sale{}, fmt.Errorf("final price %q: %w", s.FinalPrice, err)
	}
	var items []LineItem
	if err := json.Unmarshal([]byte(s.LineItems), &items); err != nil {
		return Sale{}, fmt.Errorf("line items: %w", err)
	}
	return Sale{
		Shop:          s.Shop,
		Timestamp:     s.Timestamp,
		FinalPrice:    price,
		PaymentMethod: s.PaymentMethod,
		LineItems:     items,
	}, nil
}

// SaleTime normalises t to the precision every store keeps.
func SaleTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
