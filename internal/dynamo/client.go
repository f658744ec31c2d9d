package dynamo

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/juju/errors"

	"github.com/sakarghimire/product-service/internal/config"
)

// NewClient builds a DynamoDB client from the configuration. The SDK's own
// retries are capped at cfg.MaxRetries.
func NewClient(cfg config.Config) (*dynamodb.DynamoDB, error) {
	sess, err := session.NewSession(awsConfig(cfg))
	if err != nil {
		return nil, errors.Annotate(err, "create AWS session")
	}
	return dynamodb.New(sess), nil
}

func awsConfig(cfg config.Config) *aws.Config {
	c := aws.NewConfig().
		WithRegion(cfg.Region).
		WithMaxRetries(cfg.MaxRetries)
	if cfg.DynamoDBEndpoint != "" {
		c = c.WithEndpoint(cfg.DynamoDBEndpoint)
	}
	return c
}
