package products

import (
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/juju/errors"
)

const (
	// KeyAttribute is the partition key of the products table.
	KeyAttribute = "id"

	attrUserID    = "userId"
	attrCreatedAt = "createdAt"

	// CreatedAtLayout is the ISO-8601 layout used for createdAt, millisecond
	// precision in UTC.
	CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"
)

const (
	MsgInvalidProduct  = "Product must contains: name, image url, description and price"
	MsgProductNotFound = "Product not found .."
	MsgProductDeleted  = "Product has been deleted successfully!"
)

var (
	ErrInvalidProduct  = errors.NewNotValid(nil, MsgInvalidProduct)
	ErrProductNotFound = errors.NewNotFound(nil, MsgProductNotFound)
)

type Product struct {
	ID          string `json:"id" dynamodbav:"id"`
	CreatedAt   string `json:"createdAt" dynamodbav:"createdAt"`
	UserID      string `json:"userId" dynamodbav:"userId"`
	Name        string `json:"name" dynamodbav:"name"`
	ImageURL    string `json:"imageUrl" dynamodbav:"imageUrl"`
	Description string `json:"description" dynamodbav:"description"`
	Price       string `json:"price" dynamodbav:"price"`
}

// Item is a product as read back from the table. Updates may add attributes
// or change their types, so reads keep the whole attribute map.
type Item map[string]interface{}

// Attr returns the named attribute when it holds a string, or "".
func (i Item) Attr(name string) string {
	s, _ := i[name].(string)
	return s
}

// NewProduct is the request body of a create call.
type NewProduct struct {
	Name        string `json:"name" validate:"notblank"`
	ImageURL    string `json:"imageUrl" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
	Price       string `json:"price" validate:"notblank"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Validate reports ErrInvalidProduct when any field is empty or whitespace.
// All fields share the one message.
func (p NewProduct) Validate() error {
	if err := validate.Struct(p); err != nil {
		return ErrInvalidProduct
	}
	return nil
}
