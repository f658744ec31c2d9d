package handler

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

const (
	headerAllowOrigin      = "Access-Control-Allow-Origin"
	headerAllowCredentials = "Access-Control-Allow-Credentials"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func corsHeaders() map[string]string {
	return map[string]string{
		headerAllowOrigin:      "*",
		headerAllowCredentials: "true",
	}
}

// BuildResponse wraps payload as the JSON body of an API Gateway response
// carrying the CORS headers. Every handler outcome goes through it.
func BuildResponse(statusCode int, payload interface{}) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		statusCode = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    corsHeaders(),
		Body:       string(body),
	}
}
