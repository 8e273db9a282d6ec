package dynamo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const tableWait = 2 * time.Minute

func (s *Store) tableDefs() []*dynamodb.CreateTableInput {
	attr := func(name string) types.AttributeDefinition {
		return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
	}
	key := func(name string, kt types.KeyType) types.KeySchemaElement {
		return types.KeySchemaElement{AttributeName: aws.String(name), KeyType: kt}
	}
	return []*dynamodb.CreateTableInput{
		{
			TableName:            aws.String(s.tables.Shops),
			AttributeDefinitions: []types.AttributeDefinition{attr("name")},
			KeySchema:            []types.KeySchemaElement{key("name", types.KeyTypeHash)},
			BillingMode:          types.BillingModePayPerRequest,
		},
		{
			TableName:            aws.String(s.tables.Products),
			AttributeDefinitions: []types.AttributeDefinition{attr("product_id"), attr("barcode")},
			KeySchema:            []types.KeySchemaElement{key("product_id", types.KeyTypeHash)},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
				IndexName:  aws.String(BarcodeIndex),
				KeySchema:  []types.KeySchemaElement{key("barcode", types.KeyTypeHash)},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			}},
			BillingMode: types.BillingModePayPerRequest,
		},
		{
			TableName:            aws.String(s.tables.Sales),
			AttributeDefinitions: []types.AttributeDefinition{attr("shop_name"), attr("timestamp")},
			KeySchema: []types.KeySchemaElement{
				key("shop_name", types.KeyTypeHash),
				key("timestamp", types.KeyTypeRange),
			},
			BillingMode: types.BillingModePayPerRequest,
		},
	}
}

// EnsureTables creates missing tables and waits until they are active.
func (s *Store) EnsureTables(ctx context.Context) error {
	for _, def := range s.tableDefs() {
		_, err := s.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: def.TableName})
		if err == nil {
			continue
		}
		var nf *types.ResourceNotFoundException
		if !errors.As(err, &nf) {
			return mapError(err)
		}

		s.log.Info(ctx, "creating table", "table", aws.ToString(def.TableName))
		if _, err := s.db.CreateTable(ctx, def); err != nil {
			return mapError(err)
		}
		w := dynamodb.NewTableExistsWaiter(s.db)
		if err := w.Wait(ctx, &dynamodb.DescribeTableInput{TableName: def.TableName}, tableWait); err != nil {
			return mapError(err)
		}
	}
	return nil
}
