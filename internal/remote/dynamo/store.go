package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/cryptox"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ remote.Admin = (*Store)(nil)

// BarcodeIndex is the products GSI keyed by barcode.
const BarcodeIndex = "barcode-index"

// maxWriteAttempts bounds the optimistic retry loop of product writes.
const maxWriteAttempts = 8

// API is the subset of *dynamodb.Client the store uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type Tables struct {
	Products string
	Sales    string
	Shops    string
}

// Config selects the account and tables. Static credentials are used when
// AccessKeyID is set, otherwise the default AWS credential chain applies.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Tables          Tables
}

// test seams
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig
	newDynamoClient      = func(cfg aws.Config, optFns ...func(*dynamodb.Options)) API {
		return dynamodb.NewFromConfig(cfg, optFns...)
	}
)

type Store struct {
	db     API
	tables Tables
	log    logging.Logger
	now    func() time.Time
}

// New builds a store from AWS configuration.
func New(ctx context.Context, cfg Config, l logging.Logger) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := newDynamoClient(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.Tables, l), nil
}

func NewWithClient(db API, tables Tables, l logging.Logger) *Store {
	return &Store{db: db, tables: tables, log: l.With("module", "dynamo_store"), now: time.Now}
}

// mapError translates SDK failures into the common error taxonomy. Anything
// that is not an API error never reached the service.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return fmt.Errorf("%w: %v", common.ErrConnectivity, err)
	}
	switch ae.ErrorCode() {
	case "UnrecognizedClientException", "AccessDeniedException", "InvalidSignatureException",
		"ExpiredTokenException", "MissingAuthenticationTokenException":
		return fmt.Errorf("%w: %v", common.ErrAuthorization, err)
	case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded",
		"ServiceUnavailable", "InternalServerError":
		return fmt.Errorf("%w: %v", common.ErrConnectivity, err)
	case "ResourceNotFoundException":
		return fmt.Errorf("%w: %v", common.ErrNotFound, err)
	}
	return err
}

func conditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func num(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}
func str(s string) types.AttributeValue { return &types.AttributeValueMemberS{Value: s} }

// Ping checks that the products table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tables.Products)})
	return mapError(err)
}

// Login checks the shop password. Direct table access has no session, so the
// shop name doubles as the token.
func (s *Store) Login(ctx context.Context, shop, password string) (string, error) {
	if _, err := s.VerifyShop(ctx, shop, password); err != nil {
		return "", err
	}
	return shop, nil
}

func (s *Store) SetToken(string) {}

func (s *Store) getProduct(ctx context.Context, id string) (*productItem, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tables.Products),
		Key:            map[string]types.AttributeValue{"product_id": str(id)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var it productItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("%w: product %s: %v", common.ErrDataIntegrity, id, err)
	}
	return &it, nil
}

// mutateProduct applies fn to the current version of product id and writes
// it back with a fresh last_updated. cur is nil when the product does not
// exist; fn returns the item to write. A lost race re-reads and re-applies.
func (s *Store) mutateProduct(ctx context.Context, id string, fn func(cur *productItem) (*productItem, error)) (*productItem, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		cur, err := s.getProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		var prev *productItem
		if cur != nil {
			c := *cur
			prev = &c
		}
		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		next.ProductID = id
		if next.Prices == nil {
			next.Prices = map[string]price{}
		}
		next.LastUpdated = remote.NextTimestamp(s.now(), prev.lastUpdated()).UnixMicro()

		av, err := attributevalue.MarshalMap(next)
		if err != nil {
			return nil, fmt.Errorf("failed to encode product %s: %w", id, err)
		}
		in := &dynamodb.PutItemInput{
			TableName:                aws.String(s.tables.Products),
			Item:                     av,
			ExpressionAttributeNames: map[string]string{"#id": "product_id"},
		}
		if prev == nil {
			in.ConditionExpression = aws.String("attribute_not_exists(#id)")
		} else {
			in.ConditionExpression = aws.String("#lu = :prev")
			in.ExpressionAttributeNames = map[string]string{"#lu": "last_updated"}
			in.ExpressionAttributeValues = map[string]types.AttributeValue{":prev": num(prev.LastUpdated)}
		}

		_, err = s.db.PutItem(ctx, in)
		if conditionFailed(err) {
			s.log.Info(ctx, "concurrent product write, retrying", "product_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, mapError(err)
		}
		return next, nil
	}
	return nil, fmt.Errorf("%w: product %s: too many concurrent writes", common.ErrItemWrite, id)
}

func (s *Store) UpsertProduct(ctx context.Context, productID, shop string, fields models.ProductFields, p *decimal.Decimal) (models.Revision, error) {
	if p != nil && shop == "" {
		return models.Revision{}, fmt.Errorf("%w: price without shop", common.ErrInvalidArgument)
	}
	if productID == "" {
		productID = uuid.NewString()
	}
	it, err := s.mutateProduct(ctx, productID, func(cur *productItem) (*productItem, error) {
		next := &productItem{}
		if cur != nil {
			next = cur
		}
		next.setFields(fields)
		if p != nil {
			if next.Prices == nil {
				next.Prices = map[string]price{}
			}
			next.Prices[shop] = price(*p)
		}
		return next, nil
	})
	if err != nil {
		return models.Revision{}, err
	}
	return models.Revision{ProductID: productID, LastUpdated: it.lastUpdated()}, nil
}

func (s *Store) RemovePrice(ctx context.Context, productID, shop string) error {
	_, err := s.mutateProduct(ctx, productID, func(cur *productItem) (*productItem, error) {
		if cur == nil {
			return nil, common.ErrNotFound
		}
		delete(cur.Prices, shop)
		return cur, nil
	})
	return err
}

func (s *Store) DeleteProduct(ctx context.Context, productID string) error {
	_, err := s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(s.tables.Products),
		Key:                      map[string]types.AttributeValue{"product_id": str(productID)},
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "product_id"},
	})
	if conditionFailed(err) {
		return common.ErrNotFound
	}
	return mapError(err)
}

func scanProducts[T any](ctx context.Context, s *Store, in *dynamodb.ScanInput) ([]T, error) {
	in.TableName = aws.String(s.tables.Products)
	in.ConsistentRead = aws.Bool(true)

	var out []T
	pages := dynamodb.NewScanPaginator(s.db, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, decodeItems[T](ctx, s, "product", page.Items)...)
	}
	return out, nil
}

// decodeItems unmarshals every item on its own. An item that does not decode
// is logged and left out; the rest of the page is still returned.
func decodeItems[T any](ctx context.Context, s *Store, kind string, raw []map[string]types.AttributeValue) []T {
	out := make([]T, 0, len(raw))
	for _, av := range raw {
		var v T
		if err := attributevalue.UnmarshalMap(av, &v); err != nil {
			s.log.Warn(ctx, "skipping malformed item", "kind", kind, "key", itemKey(av), "err", err)
			continue
		}
		out = append(out, v)
	}
	return out
}

func itemKey(av map[string]types.AttributeValue) string {
	for _, name := range []string{"product_id", "name", "timestamp"} {
		if v, ok := av[name].(*types.AttributeValueMemberS); ok {
			return v.Value
		}
	}
	return ""
}

func toModels(items []productItem) []models.Product {
	out := make([]models.Product, 0, len(items))
	for i := range items {
		out = append(out, items[i].model())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) QueryDelta(ctx context.Context, shop string, since *time.Time) ([]models.Product, error) {
	in := &dynamodb.ScanInput{}
	var filters []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	if since != nil {
		filters = append(filters, "#lu > :since")
		names["#lu"] = "last_updated"
		values[":since"] = num(since.UnixMicro())
	}
	if shop != "" {
		filters = append(filters, "attribute_exists(#prices.#shop)")
		names["#prices"] = "prices"
		names["#shop"] = shop
	}
	if len(filters) > 0 {
		expr := filters[0]
		for _, f := range filters[1:] {
			expr += " AND " + f
		}
		in.FilterExpression = aws.String(expr)
		in.ExpressionAttributeNames = names
		if len(values) > 0 {
			in.ExpressionAttributeValues = values
		}
	}

	items, err := scanProducts[productItem](ctx, s, in)
	if err != nil {
		return nil, err
	}
	return toModels(items), nil
}

func (s *Store) ListAllIDs(ctx context.Context) ([]models.ProductKey, error) {
	items, err := scanProducts[keyItem](ctx, s, &dynamodb.ScanInput{
		ProjectionExpression:     aws.String("#id, #barcode"),
		ExpressionAttributeNames: map[string]string{"#id": "product_id", "#barcode": "barcode"},
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.ProductKey, 0, len(items))
	for _, it := range items {
		out = append(out, models.ProductKey{ID: it.ProductID, Barcode: it.Barcode})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindByBarcode(ctx context.Context, barcode string) ([]models.Product, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tables.Products),
		IndexName:                 aws.String(BarcodeIndex),
		KeyConditionExpression:    aws.String("#barcode = :barcode"),
		ExpressionAttributeNames:  map[string]string{"#barcode": "barcode"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":barcode": str(barcode)},
	}
	var items []productItem
	pages := dynamodb.NewQueryPaginator(s.db, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		items = append(items, decodeItems[productItem](ctx, s, "product", page.Items)...)
	}
	return toModels(items), nil
}

// AppendSale overwrites any sale with the same (shop, timestamp), which makes
// retried uploads idempotent.
func (s *Store) AppendSale(ctx context.Context, shop string, sale models.Sale) error {
	av, err := attributevalue.MarshalMap(newSaleItem(shop, sale))
	if err != nil {
		return fmt.Errorf("failed to encode sale: %w", err)
	}
	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.tables.Sales), Item: av})
	return mapError(err)
}

func (s *Store) QuerySales(ctx context.Context, shop string, limit int, newestFirst bool) ([]models.Sale, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tables.Sales),
		KeyConditionExpression:    aws.String("#shop = :shop"),
		ExpressionAttributeNames:  map[string]string{"#shop": "shop_name"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":shop": str(shop)},
		ScanIndexForward:          aws.Bool(!newestFirst),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(limit))
	}

	out := make([]models.Sale, 0)
	pages := dynamodb.NewQueryPaginator(s.db, in)
	for pages.HasMorePages() && (limit <= 0 || len(out) < limit) {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		items := decodeItems[saleItem](ctx, s, "sale", page.Items)
		for i := range items {
			sale, err := items[i].model()
			if err != nil {
				s.log.Warn(ctx, "skipping malformed item", "kind", "sale", "key", items[i].Timestamp, "err", err)
				continue
			}
			out = append(out, sale)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) getShop(ctx context.Context, name string) (*shopItem, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Shops),
		Key:       map[string]types.AttributeValue{"name": str(name)},
	})
	if err != nil {
		return nil, mapError(err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var it shopItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("%w: shop %s: %v", common.ErrDataIntegrity, name, err)
	}
	return &it, nil
}

func (s *Store) CheckShop(ctx context.Context, name string) (*models.Shop, error) {
	it, err := s.getShop(ctx, name)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, common.ErrAuthorization
	}
	return &models.Shop{Name: it.Name, Config: it.Config}, nil
}

func (s *Store) VerifyShop(ctx context.Context, name, password string) (*models.Shop, error) {
	it, err := s.getShop(ctx, name)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, common.ErrAuthorization
	}
	if err := cryptox.CheckPassword(it.PasswordHash, password); err != nil {
		return nil, common.ErrAuthorization
	}
	return &models.Shop{Name: it.Name, Config: it.Config}, nil
}

func (s *Store) ListShops(ctx context.Context) ([]string, error) {
	in := &dynamodb.ScanInput{
		TableName:                aws.String(s.tables.Shops),
		ProjectionExpression:     aws.String("#name"),
		ExpressionAttributeNames: map[string]string{"#name": "name"},
	}
	out := make([]string, 0)
	pages := dynamodb.NewScanPaginator(s.db, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, it := range decodeItems[shopItem](ctx, s, "shop", page.Items) {
			out = append(out, it.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// CreateShop registers the shop and, when copyFrom is set, lists every
// product priced in copyFrom in the new shop at the same price.
func (s *Store) CreateShop(ctx context.Context, shop models.Shop, password, copyFrom string) error {
	if shop.Name == "" {
		return fmt.Errorf("%w: empty shop name", common.ErrInvalidArgument)
	}
	if copyFrom != "" {
		src, err := s.getShop(ctx, copyFrom)
		if err != nil {
			return err
		}
		if src == nil {
			return fmt.Errorf("source shop %q: %w", copyFrom, common.ErrNotFound)
		}
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(shopItem{Name: shop.Name, PasswordHash: hash, Config: shop.Config})
	if err != nil {
		return fmt.Errorf("failed to encode shop: %w", err)
	}
	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.tables.Shops),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#name)"),
		ExpressionAttributeNames: map[string]string{"#name": "name"},
	})
	if conditionFailed(err) {
		return common.ErrAlreadyExists
	}
	if err != nil {
		return mapError(err)
	}
	if copyFrom == "" {
		return nil
	}

	listed, err := s.QueryDelta(ctx, copyFrom, nil)
	if err != nil {
		return err
	}
	for _, p := range listed {
		_, err := s.mutateProduct(ctx, p.ID, func(cur *productItem) (*productItem, error) {
			if cur == nil {
				return nil, common.ErrNotFound
			}
			if v, ok := cur.Prices[copyFrom]; ok {
				cur.Prices[shop.Name] = v
			}
			return cur, nil
		})
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to copy price of %s: %w", p.ID, err)
		}
	}
	s.log.Info(ctx, "shop created", "shop", shop.Name, "copied_from", copyFrom, "products", len(listed))
	return nil
}
