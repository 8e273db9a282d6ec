package dynamo

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/shopspring/decimal"
)

// price stores a decimal as a DynamoDB Number.
type price decimal.Decimal

func (p price) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: decimal.Decimal(p).String()}, nil
}

func (p *price) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var raw string
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		raw = v.Value
	case *types.AttributeValueMemberS:
		raw = v.Value
	default:
		return fmt.Errorf("%w: price is %T", common.ErrDataIntegrity, av)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%w: price %q", common.ErrDataIntegrity, raw)
	}
	*p = price(d)
	return nil
}

type productItem struct {
	ProductID   string           `dynamodbav:"product_id"`
	Barcode     string           `dynamodbav:"barcode,omitempty"`
	Brand       string           `dynamodbav:"brand"`
	Category    string           `dynamodbav:"category"`
	Flavor      string           `dynamodbav:"flavor"`
	Prices      map[string]price `dynamodbav:"prices"`
	LastUpdated int64            `dynamodbav:"last_updated"`
}

// keyItem is the projection read by the id enumeration.
type keyItem struct {
	ProductID string `dynamodbav:"product_id"`
	Barcode   string `dynamodbav:"barcode,omitempty"`
}

func (it *productItem) setFields(f models.ProductFields) {
	it.Barcode = f.Barcode
	it.Brand = f.Brand
	it.Category = f.Category
	it.Flavor = f.Flavor
}

func (it *productItem) model() models.Product {
	p := models.Product{
		ID: it.ProductID,
		ProductFields: models.ProductFields{
			Barcode:  it.Barcode,
			Brand:    it.Brand,
			Category: it.Category,
			Flavor:   it.Flavor,
		},
		Prices: make(map[string]decimal.Decimal, len(it.Prices)),
	}
	for shop, v := range it.Prices {
		p.Prices[shop] = decimal.Decimal(v)
	}
	if it.LastUpdated > 0 {
		p.LastUpdated = time.UnixMicro(it.LastUpdated).UTC()
	}
	return p
}

func (it *productItem) lastUpdated() time.Time {
	if it == nil || it.LastUpdated == 0 {
		return time.Time{}
	}
	return time.UnixMicro(it.LastUpdated).UTC()
}

type lineItem struct {
	ProductID   string `dynamodbav:"product_id,omitempty"`
	Barcode     string `dynamodbav:"barcode"`
	Description string `dynamodbav:"description,omitempty"`
	Quantity    int    `dynamodbav:"quantity"`
	UnitPrice   price  `dynamodbav:"unit_price"`
}

type saleItem struct {
	Shop          string     `dynamodbav:"shop_name"`
	Timestamp     string     `dynamodbav:"timestamp"`
	FinalPrice    price      `dynamodbav:"final_price"`
	PaymentMethod string     `dynamodbav:"payment_method"`
	LineItems     []lineItem `dynamodbav:"line_items"`
}

func newSaleItem(shop string, s models.Sale) saleItem {
	it := saleItem{
		Shop:          shop,
		Timestamp:     models.SaleTime(s.Timestamp).Format(common.TimestampLayout),
		FinalPrice:    price(s.FinalPrice),
		PaymentMethod: s.PaymentMethod,
		LineItems:     make([]lineItem, 0, len(s.LineItems)),
	}
	for _, li := range s.LineItems {
		it.LineItems = append(it.LineItems, lineItem{
			ProductID:   li.ProductID,
			Barcode:     li.Barcode,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   price(li.UnitPrice),
		})
	}
	return it
}

func (it *saleItem) model() (models.Sale, error) {
	ts, err := time.Parse(common.TimestampLayout, it.Timestamp)
	if err != nil {
		return models.Sale{}, fmt.Errorf("%w: sale timestamp %q", common.ErrDataIntegrity, it.Timestamp)
	}
	s := models.Sale{
		Shop:          it.Shop,
		Timestamp:     ts.UTC(),
		FinalPrice:    decimal.Decimal(it.FinalPrice),
		PaymentMethod: it.PaymentMethod,
		LineItems:     make([]models.LineItem, 0, len(it.LineItems)),
	}
	for _, li := range it.LineItems {
		s.LineItems = append(s.LineItems, models.LineItem{
			ProductID:   li.ProductID,
			Barcode:     li.Barcode,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   decimal.Decimal(li.UnitPrice),
		})
	}
	return s, nil
}

type shopItem struct {
	Name         string            `dynamodbav:"name"`
	PasswordHash string            `dynamodbav:"password_hash"`
	Config       map[string]string `dynamodbav:"config,omitempty"`
}
