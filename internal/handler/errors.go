package handler

import (
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/juju/errors"

	"github.com/sakarghimire/product-service/internal/products"
)

// errorToResponse maps service errors onto the response envelope. Store
// failures keep the status DynamoDB answered with.
func errorToResponse(err error) events.APIGatewayProxyResponse {
	var storeErr *products.StoreError
	switch {
	case errors.Is(err, errors.NotValid):
		return BuildResponse(http.StatusBadRequest, errorResponse{Error: products.MsgInvalidProduct})
	case errors.Is(err, errors.NotFound):
		return BuildResponse(http.StatusNotFound, errorResponse{Error: products.MsgProductNotFound})
	case errors.As(err, &storeErr):
		status := storeErr.StatusCode()
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return BuildResponse(status, storeErr.Payload())
	default:
		return BuildResponse(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
