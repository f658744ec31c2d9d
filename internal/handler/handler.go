package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/sakarghimire/product-service/internal/products"
)

const (
	paramUserID    = "userId"
	paramProductID = "id"

	msgInvalidPayload = "Invalid request payload"
)

type ProductService interface {
	CreateProduct(ctx context.Context, userID string, input products.NewProduct) (products.Product, error)
	ListProductsByUser(ctx context.Context, userID string) ([]products.Item, error)
	GetProduct(ctx context.Context, id string) (products.Item, error)
	UpdateProduct(ctx context.Context, id string, fields []products.Field) (map[string]interface{}, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Handler adapts API Gateway proxy events to the product service. Handlers
// never return a non-nil error: every failure is encoded in the response.
type Handler struct {
	service ProductService
	logger  zerolog.Logger
}

func New(svc ProductService, logger zerolog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

func missingParam(name string) events.APIGatewayProxyResponse {
	return BuildResponse(http.StatusBadRequest, errorResponse{Error: "Missing path parameter: " + name})
}

func (h *Handler) CreateProduct(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID := req.PathParameters[paramUserID]
	if userID == "" {
		return missingParam(paramUserID), nil
	}

	var input products.NewProduct
	if err := json.Unmarshal([]byte(req.Body), &input); err != nil {
		return BuildResponse(http.StatusBadRequest, errorResponse{Error: msgInvalidPayload}), nil
	}

	product, err := h.service.CreateProduct(ctx, userID, input)
	if err != nil {
		return errorToResponse(err), nil
	}
	return BuildResponse(http.StatusCreated, product), nil
}

func (h *Handler) ListProductsByUser(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID := req.PathParameters[paramUserID]
	if userID == "" {
		return missingParam(paramUserID), nil
	}

	list, err := h.service.ListProductsByUser(ctx, userID)
	if err != nil {
		return errorToResponse(err), nil
	}
	return BuildResponse(http.StatusOK, list), nil
}

func (h *Handler) GetProduct(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := req.PathParameters[paramProductID]
	if id == "" {
		return missingParam(paramProductID), nil
	}

	product, err := h.service.GetProduct(ctx, id)
	if err != nil {
		return errorToResponse(err), nil
	}
	return BuildResponse(http.StatusOK, product), nil
}

func (h *Handler) UpdateProduct(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := req.PathParameters[paramProductID]
	if id == "" {
		return missingParam(paramProductID), nil
	}

	fields, err := products.DecodeFields([]byte(req.Body))
	if err != nil {
		return BuildResponse(http.StatusBadRequest, errorResponse{Error: msgInvalidPayload}), nil
	}

	attributes, err := h.service.UpdateProduct(ctx, id, fields)
	if err != nil {
		return errorToResponse(err), nil
	}
	return BuildResponse(http.StatusOK, attributes), nil
}

func (h *Handler) DeleteProduct(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := req.PathParameters[paramProductID]
	if id == "" {
		return missingParam(paramProductID), nil
	}

	if err := h.service.DeleteProduct(ctx, id); err != nil {
		return errorToResponse(err), nil
	}
	return BuildResponse(http.StatusOK, messageResponse{Message: products.MsgProductDeleted}), nil
}
