// Package dynamotest provides an in-memory DynamoDB table for tests.
//
// Table covers the calls the product store issues: PutItem, GetItem, Scan,
// UpdateItem with SET clauses and attribute_exists conditions, DeleteItem and
// DescribeTable. Everything else panics through the nil embedded interface.
package dynamotest

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

const (
	requestID = "dynamotest-request"

	OpPut      = "PutItem"
	OpGet      = "GetItem"
	OpScan     = "Scan"
	OpUpdate   = "UpdateItem"
	OpDelete   = "DeleteItem"
	OpDescribe = "DescribeTable"
)

type Table struct {
	dynamodbiface.DynamoDBAPI

	// PageSize limits items per Scan page. Zero returns everything at once.
	PageSize int

	mu       sync.Mutex
	name     string
	key      string
	items    map[string]map[string]*dynamodb.AttributeValue
	failures map[string]error
	calls    []string
}

func NewTable(name, key string) *Table {
	return &Table{
		name:     name,
		key:      key,
		items:    make(map[string]map[string]*dynamodb.AttributeValue),
		failures: make(map[string]error),
	}
}

// Fail makes every later call of op return err.
func (t *Table) Fail(op string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[op] = err
}

// Calls lists the operations issued so far, in order.
func (t *Table) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

// Len is the number of stored items.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Item returns a copy of the stored item with the given key, or nil.
func (t *Table) Item(key string) map[string]*dynamodb.AttributeValue {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyItem(t.items[key])
}

// RequestFailure builds an error shaped like one returned by the AWS SDK.
func RequestFailure(code, message string, status int) error {
	return awserr.NewRequestFailure(awserr.New(code, message, nil), status, requestID)
}

func validationError(format string, args ...interface{}) error {
	return RequestFailure("ValidationException", fmt.Sprintf(format, args...), 400)
}

func (t *Table) begin(op string, table *string) error {
	t.calls = append(t.calls, op)
	if err := t.failures[op]; err != nil {
		return err
	}
	if aws.StringValue(table) != t.name {
		return RequestFailure(dynamodb.ErrCodeResourceNotFoundException, "Requested resource not found", 400)
	}
	return nil
}

func (t *Table) keyOf(key map[string]*dynamodb.AttributeValue) (string, error) {
	av, ok := key[t.key]
	if !ok || av == nil || av.S == nil || len(key) != 1 {
		return "", validationError("The provided key element does not match the schema")
	}
	return *av.S, nil
}

func (t *Table) PutItemWithContext(_ aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin(OpPut, in.TableName); err != nil {
		return nil, err
	}

	id, err := t.keyOf(map[string]*dynamodb.AttributeValue{t.key: in.Item[t.key]})
	if err != nil {
		return nil, err
	}
	t.items[id] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (t *Table) GetItemWithContext(_ aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin(OpGet, in.TableName); err != nil {
		return nil, err
	}

	id, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: copyItem(t.items[id])}, nil
}

func (t *Table) ScanWithContext(_ aws.Context, in *dynamodb.ScanInput, _ ...request.Option) (*dynamodb.ScanOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin(OpScan, in.TableName); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if start, ok := in.ExclusiveStartKey[t.key]; ok && start.S != nil {
		i := sort.SearchStrings(keys, *start.S)
		if i < len(keys) && keys[i] == *start.S {
			i++
		}
		keys = keys[i:]
	}

	out := &dynamodb.ScanOutput{}
	if t.PageSize > 0 && len(keys) > t.PageSize {
		keys = keys[:t.PageSize]
		out.LastEvaluatedKey = map[string]*dynamodb.AttributeValue{
			t.key: {S: aws.String(keys[len(keys)-1])},
		}
	}
	for _, k := range keys {
		out.Items = append(out.Items, copyItem(t.items[k]))
	}
	out.Count = aws.Int64(int64(len(out.Items)))
	out.ScannedCount = out.Count
	return out, nil
}

func (t *Table) UpdateItemWithContext(_ aws.Context, in *dynamodb.UpdateItemInput, _ ...request.Option) (*dynamodb.UpdateItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin(OpUpdate, in.TableName); err != nil {
		return nil, err
	}

	id, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}

	assignments, err := parseSet(aws.StringValue(in.UpdateExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if a.name == t.key {
			return nil, validationError("Cannot update attribute %s. This attribute is part of the key", t.key)
		}
	}

	existing, exists := t.items[id]
	if cond := aws.StringValue(in.ConditionExpression); cond != "" {
		if cond != fmt.Sprintf("attribute_exists(%s)", t.key) {
			return nil, validationError("unsupported condition %q", cond)
		}
		if !exists {
			return nil, RequestFailure(dynamodb.ErrCodeConditionalCheckFailedException, "The conditional request failed", 400)
		}
	}

	item := copyItem(existing)
	if item == nil {
		item = map[string]*dynamodb.AttributeValue{t.key: {S: aws.String(id)}}
	}
	updated := make(map[string]*dynamodb.AttributeValue, len(assignments))
	for _, a := range assignments {
		item[a.name] = a.value
		updated[a.name] = a.value
	}
	t.items[id] = item

	out := &dynamodb.UpdateItemOutput{}
	switch aws.StringValue(in.ReturnValues) {
	case dynamodb.ReturnValueUpdatedNew:
		out.Attributes = copyItem(updated)
	case dynamodb.ReturnValueAllNew:
		out.Attributes = copyItem(item)
	}
	return out, nil
}

func (t *Table) DeleteItemWithContext(_ aws.Context, in *dynamodb.DeleteItemInput, _ ...request.Option) (*dynamodb.DeleteItemOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin(OpDelete, in.TableName); err != nil {
		return nil, err
	}

	id, err := t.keyOf(in.Key)
	if err != nil {
		return nil, err
	}
	delete(t.items, id)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (t *Table) DescribeTableWithContext(_ aws.Context, in *dynamodb.DescribeTableInput, _ ...request.Option) (*dynamodb.DescribeTableOutput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.begin(OpDescribe, in.TableName); err != nil {
		return nil, err
	}

	return &dynamodb.DescribeTableOutput{
		Table: &dynamodb.TableDescription{
			TableName:   aws.String(t.name),
			TableStatus: aws.String(dynamodb.TableStatusActive),
			ItemCount:   aws.Int64(int64(len(t.items))),
		},
	}, nil
}

type assignment struct {
	name  string
	value *dynamodb.AttributeValue
}

// parseSet understands "SET #a = :a, #b = :b" with placeholders only.
func parseSet(clause string, names map[string]*string, values map[string]*dynamodb.AttributeValue) ([]assignment, error) {
	body := strings.TrimSpace(strings.TrimPrefix(clause, "SET"))
	if !strings.HasPrefix(clause, "SET") || body == "" {
		return nil, validationError("Invalid UpdateExpression: Syntax error; token: \"<EOF>\", near: %q", clause)
	}

	var out []assignment
	seen := make(map[string]bool)
	for _, part := range strings.Split(body, ",") {
		sides := strings.Split(part, "=")
		if len(sides) != 2 {
			return nil, validationError("Invalid UpdateExpression: %q", part)
		}
		namePh := strings.TrimSpace(sides[0])
		valuePh := strings.TrimSpace(sides[1])

		name, ok := names[namePh]
		if !ok || name == nil {
			return nil, validationError("An expression attribute name used in the document path is not defined; attribute name: %s", namePh)
		}
		value, ok := values[valuePh]
		if !ok || value == nil {
			return nil, validationError("An expression attribute value used in expression is not defined; attribute value: %s", valuePh)
		}
		if seen[*name] {
			return nil, validationError("Two document paths overlap with each other")
		}
		seen[*name] = true
		out = append(out, assignment{name: *name, value: value})
	}
	return out, nil
}

func copyItem(item map[string]*dynamodb.AttributeValue) map[string]*dynamodb.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]*dynamodb.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
