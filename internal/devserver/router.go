// Package devserver serves the Lambda handlers over plain HTTP for local
// development, translating requests into API Gateway proxy events.
package devserver

import (
	"context"
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakarghimire/product-service/internal/handler"
)

const (
	healthStatusOK        = "ok"
	healthStatusUnhealthy = "unhealthy"
	contentTypeJSON       = "application/json"
)

// LambdaHandler is the signature handed to lambda.Start.
type LambdaHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

type HealthChecker interface {
	Health(ctx context.Context) error
}

// RegisterRoutes mounts fn on the same resources API Gateway exposes, plus
// /healthz and /metrics.
func RegisterRoutes(router *gin.Engine, fn LambdaHandler, checker HealthChecker, gatherer prometheus.Gatherer) {
	userProducts := proxy(fn, handler.ResourceUserProducts)
	product := proxy(fn, handler.ResourceProduct)

	router.POST("/users/:userId/products", userProducts)
	router.GET("/users/:userId/products", userProducts)
	router.OPTIONS("/users/:userId/products", userProducts)

	router.GET("/products/:id", product)
	router.PUT("/products/:id", product)
	router.PATCH("/products/:id", product)
	router.DELETE("/products/:id", product)
	router.OPTIONS("/products/:id", product)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/healthz", func(c *gin.Context) {
		if err := checker.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": healthStatusUnhealthy, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": healthStatusOK})
	})
}

func proxy(fn LambdaHandler, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}

		resp, err := fn(c.Request.Context(), toProxyRequest(c, resource, body))
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		c.Data(resp.StatusCode, contentTypeJSON, []byte(resp.Body))
	}
}

func toProxyRequest(c *gin.Context, resource string, body []byte) events.APIGatewayProxyRequest {
	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		params[p.Key] = p.Value
	}

	headers := make(map[string]string, len(c.Request.Header))
	for k, v := range c.Request.Header {
		headers[k] = v[0]
	}

	query := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		query[k] = v[0]
	}

	return events.APIGatewayProxyRequest{
		Resource:              resource,
		Path:                  c.Request.URL.Path,
		HTTPMethod:            c.Request.Method,
		Headers:               headers,
		MultiValueHeaders:     c.Request.Header,
		QueryStringParameters: query,
		PathParameters:        params,
		Body:                  string(body),
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID:    c.GetString(requestIDHeader),
			ResourcePath: resource,
			HTTPMethod:   c.Request.Method,
			Path:         c.Request.URL.Path,
		},
	}
}
