package main

import (
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/sakarghimire/product-service/internal/config"
	"github.com/sakarghimire/product-service/internal/logging"
	"github.com/sakarghimire/product-service/internal/stream"
)

func main() {
	cfg := config.LoadLogging()
	logger := logging.New("products-stream", cfg.Level, cfg.Pretty)
	lambda.Start(stream.NewProcessor(logger).Handle)
}
