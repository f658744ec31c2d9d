package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

// API Gateway resource templates the functions are mounted on.
const (
	ResourceUserProducts = "/users/{userId}/products"
	ResourceProduct      = "/products/{id}"
)

type lambdaFunc func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Route dispatches a proxy event on its resource template and HTTP method.
// It is the function handed to lambda.Start.
func (h *Handler) Route(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()

	resp := h.dispatch(ctx, req)

	requestID := req.RequestContext.RequestID
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		requestID = lc.AwsRequestID
	}
	h.logger.Info().
		Str("method", req.HTTPMethod).
		Str("resource", req.Resource).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Str("request_id", requestID).
		Msg("api request")

	return resp, nil
}

func (h *Handler) dispatch(ctx context.Context, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if req.HTTPMethod == http.MethodOptions {
		return BuildResponse(http.StatusOK, messageResponse{Message: "ok"})
	}

	var routes map[string]lambdaFunc
	switch req.Resource {
	case ResourceUserProducts:
		routes = map[string]lambdaFunc{
			http.MethodPost: h.CreateProduct,
			http.MethodGet:  h.ListProductsByUser,
		}
	case ResourceProduct:
		routes = map[string]lambdaFunc{
			http.MethodGet:    h.GetProduct,
			http.MethodPut:    h.UpdateProduct,
			http.MethodPatch:  h.UpdateProduct,
			http.MethodDelete: h.DeleteProduct,
		}
	default:
		return BuildResponse(http.StatusNotFound, errorResponse{Error: "Route not found"})
	}

	fn, ok := routes[req.HTTPMethod]
	if !ok {
		return BuildResponse(http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	}

	return h.invoke(ctx, fn, req)
}

// invoke runs fn. Handlers encode failures in the response, so a returned
// error is logged and turned into a response instead of reaching the runtime.
func (h *Handler) invoke(ctx context.Context, fn lambdaFunc, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	resp, err := fn(ctx, req)
	if err != nil {
		h.logger.Error().Err(err).
			Str("method", req.HTTPMethod).
			Str("resource", req.Resource).
			Msg("handler returned an error")
		return errorToResponse(err)
	}
	return resp
}
