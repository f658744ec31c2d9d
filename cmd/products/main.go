package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/sakarghimire/product-service/internal/config"
	"github.com/sakarghimire/product-service/internal/dynamo"
	"github.com/sakarghimire/product-service/internal/handler"
	"github.com/sakarghimire/product-service/internal/logging"
	"github.com/sakarghimire/product-service/internal/products"
)

const serviceName = "products"

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(serviceName, cfg.LogLevel, cfg.LogPretty)

	client, err := dynamo.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("create dynamodb client")
	}

	store := products.NewDynamoStore(client, cfg.TableName)
	svc := products.NewService(store, logger, products.NewMetrics(prometheus.DefaultRegisterer))
	h := handler.New(svc, logger)

	lambda.Start(h.Route)
}
