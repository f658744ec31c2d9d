package products

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/juju/errors"
)

// Field is one attribute assignment of a partial update.
type Field struct {
	Name  string
	Value interface{}
}

// UpdateExpression carries the three parts UpdateItem needs together.
// Placeholder #fN in Clause names Names["#fN"] and takes Values[":vN"].
type UpdateExpression struct {
	Clause string
	Names  map[string]*string
	Values map[string]*dynamodb.AttributeValue
}

// valueEncoder keeps empty strings as "" instead of the SDK default of NULL.
var valueEncoder = dynamodbattribute.NewEncoder(func(e *dynamodbattribute.Encoder) {
	e.NullEmptyString = false
})

// BuildUpdateExpression turns fields into a SET clause with one placeholder
// pair per field. Placeholders are positional so any attribute name works,
// reserved words included. A repeated name keeps its first position and its
// last value. No fields gives a bare "SET", which DynamoDB rejects.
func BuildUpdateExpression(fields []Field) (UpdateExpression, error) {
	expr := UpdateExpression{
		Names:  make(map[string]*string),
		Values: make(map[string]*dynamodb.AttributeValue),
	}

	index := make(map[string]int, len(fields))
	var ordered []Field
	for _, f := range fields {
		if i, ok := index[f.Name]; ok {
			ordered[i].Value = f.Value
			continue
		}
		index[f.Name] = len(ordered)
		ordered = append(ordered, f)
	}

	assignments := make([]string, 0, len(ordered))
	for i, f := range ordered {
		av, err := valueEncoder.Encode(f.Value)
		if err != nil {
			return UpdateExpression{}, errors.Annotatef(err, "marshal value of %q", f.Name)
		}
		name := fmt.Sprintf("#f%d", i)
		value := fmt.Sprintf(":v%d", i)
		assignments = append(assignments, name+" = "+value)
		expr.Names[name] = aws.String(f.Name)
		expr.Values[value] = av
	}

	expr.Clause = "SET"
	if len(assignments) > 0 {
		expr.Clause += " " + strings.Join(assignments, ", ")
	}
	return expr, nil
}

// DecodeFields reads a JSON object into fields, keeping document order.
func DecodeFields(body []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Annotate(err, "read update body")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("update body must be a JSON object")
	}

	fields := make([]Field, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Annotate(err, "read field name")
		}
		name, ok := tok.(string)
		if !ok {
			return nil, errors.Errorf("unexpected token %v", tok)
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, errors.Annotatef(err, "read value of %q", name)
		}
		fields = append(fields, Field{Name: name, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, errors.Annotate(err, "read update body")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after update body")
	}
	return fields, nil
}
