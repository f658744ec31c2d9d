// Package stream consumes the products table's DynamoDB stream.
package stream

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/sakarghimire/product-service/internal/products"
)

// Summary counts what one stream batch contained.
type Summary struct {
	Inserted int `json:"inserted"`
	Modified int `json:"modified"`
	Removed  int `json:"removed"`
	Skipped  int `json:"skipped"`
}

type Processor struct {
	logger zerolog.Logger
}

func NewProcessor(logger zerolog.Logger) *Processor {
	return &Processor{logger: logger}
}

// Handle logs every product change in the batch. Records it cannot read are
// skipped so one bad record never blocks the shard.
func (p *Processor) Handle(ctx context.Context, event events.DynamoDBEvent) (Summary, error) {
	var summary Summary
	for _, record := range event.Records {
		image := record.Change.NewImage
		if events.DynamoDBOperationType(record.EventName) == events.DynamoDBOperationTypeRemove {
			image = record.Change.OldImage
		}
		product := productFromImage(record.Change.Keys, image)
		if product.ID == "" {
			summary.Skipped++
			p.logger.Warn().
				Str("event_id", record.EventID).
				Str("event_name", record.EventName).
				Msg("stream record without product id")
			continue
		}

		switch events.DynamoDBOperationType(record.EventName) {
		case events.DynamoDBOperationTypeInsert:
			summary.Inserted++
		case events.DynamoDBOperationTypeModify:
			summary.Modified++
		case events.DynamoDBOperationTypeRemove:
			summary.Removed++
		default:
			summary.Skipped++
			p.logger.Warn().Str("event_id", record.EventID).Str("event_name", record.EventName).Msg("unknown stream event")
			continue
		}

		p.logger.Info().
			Str("event_id", record.EventID).
			Str("event_name", record.EventName).
			Str("event_source_arn", record.EventSourceArn).
			Str("product_id", product.ID).
			Str("user_id", product.UserID).
			Str("name", product.Name).
			Msg("product change")
	}

	p.logger.Info().
		Int("inserted", summary.Inserted).
		Int("modified", summary.Modified).
		Int("removed", summary.Removed).
		Int("skipped", summary.Skipped).
		Msg("stream batch processed")
	return summary, nil
}

// productFromImage reads the string attributes of a stream image. The key
// is taken from keys so REMOVE records without an old image still resolve.
func productFromImage(keys, image map[string]events.DynamoDBAttributeValue) products.Product {
	str := func(m map[string]events.DynamoDBAttributeValue, name string) string {
		av, ok := m[name]
		if !ok || av.DataType() != events.DataTypeString {
			return ""
		}
		return av.String()
	}

	return products.Product{
		ID:          str(keys, products.KeyAttribute),
		CreatedAt:   str(image, "createdAt"),
		UserID:      str(image, "userId"),
		Name:        str(image, "name"),
		ImageURL:    str(image, "imageUrl"),
		Description: str(image, "description"),
		Price:       str(image, "price"),
	}
}
