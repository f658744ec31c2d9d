package products

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/juju/errors"
)

const conditionItemExists = "attribute_exists(" + KeyAttribute + ")"

// Store is the table access the service needs. Each method is a single
// DynamoDB call, except Scan which follows pagination to the end.
type Store interface {
	Put(ctx context.Context, product Product) error
	Scan(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (Item, bool, error)
	Update(ctx context.Context, id string, expr UpdateExpression) (map[string]interface{}, error)
	Delete(ctx context.Context, id string) error
	Health(ctx context.Context) error
}

// DynamoStore keeps products in one DynamoDB table keyed by id.
type DynamoStore struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func NewDynamoStore(client dynamodbiface.DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func (s *DynamoStore) key(id string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		KeyAttribute: {S: aws.String(id)},
	}
}

// Put writes the product unconditionally, replacing any item with its id.
func (s *DynamoStore) Put(ctx context.Context, product Product) error {
	item, err := dynamodbattribute.MarshalMap(product)
	if err != nil {
		return errors.Annotate(err, "marshal product")
	}

	_, err = s.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return storeError("put product", err)
	}
	return nil
}

// Scan reads the whole table.
func (s *DynamoStore) Scan(ctx context.Context) ([]Item, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	}

	items := make([]Item, 0)
	for {
		result, err := s.client.ScanWithContext(ctx, input)
		if err != nil {
			return nil, storeError("scan products", err)
		}

		var page []map[string]interface{}
		if err := dynamodbattribute.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, errors.Annotate(err, "unmarshal products")
		}
		for _, item := range page {
			items = append(items, Item(item))
		}

		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// Get looks a product up by id. The bool is false when no item exists.
func (s *DynamoStore) Get(ctx context.Context, id string) (Item, bool, error) {
	result, err := s.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(id),
	})
	if err != nil {
		return nil, false, storeError("get product", err)
	}
	if len(result.Item) == 0 {
		return nil, false, nil
	}

	item := make(map[string]interface{})
	if err := dynamodbattribute.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false, errors.Annotate(err, "unmarshal product")
	}
	return Item(item), true, nil
}

// Update applies expr to an existing item and returns the new values of the
// attributes it set. A missing item fails the condition check.
func (s *DynamoStore) Update(ctx context.Context, id string, expr UpdateExpression) (map[string]interface{}, error) {
	result, err := s.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(id),
		ConditionExpression:       aws.String(conditionItemExists),
		UpdateExpression:          aws.String(expr.Clause),
		ExpressionAttributeNames:  expr.Names,
		ExpressionAttributeValues: expr.Values,
		ReturnValues:              aws.String(dynamodb.ReturnValueUpdatedNew),
	})
	if err != nil {
		return nil, storeError("update product", err)
	}

	attributes := make(map[string]interface{})
	if err := dynamodbattribute.UnmarshalMap(result.Attributes, &attributes); err != nil {
		return nil, errors.Annotate(err, "unmarshal updated attributes")
	}
	return attributes, nil
}

// Delete removes the item if present. Deleting a missing id is not an error.
func (s *DynamoStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(id),
	})
	if err != nil {
		return storeError("delete product", err)
	}
	return nil
}

// Health checks that the table is reachable.
func (s *DynamoStore) Health(ctx context.Context) error {
	_, err := s.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		return storeError("describe table", err)
	}
	return nil
}
