package products

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/juju/errors"
)

// StoreError is a DynamoDB failure passed through to the caller as is.
type StoreError struct {
	Op  string
	Err awserr.Error
}

// StoreErrorPayload is the JSON form of a StoreError returned to clients.
type StoreErrorPayload struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	StatusCode int    `json:"statusCode,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Code is the AWS error code, e.g. ConditionalCheckFailedException.
func (e *StoreError) Code() string {
	return e.Err.Code()
}

// StatusCode is the HTTP status DynamoDB answered with, or 0 if the failure
// never reached the service.
func (e *StoreError) StatusCode() int {
	if rf, ok := e.Err.(awserr.RequestFailure); ok {
		return rf.StatusCode()
	}
	return 0
}

func (e *StoreError) Payload() StoreErrorPayload {
	p := StoreErrorPayload{
		Message:    e.Err.Message(),
		Code:       e.Err.Code(),
		StatusCode: e.StatusCode(),
	}
	if rf, ok := e.Err.(awserr.RequestFailure); ok {
		p.RequestID = rf.RequestID()
	}
	return p
}

// storeError keeps AWS errors intact as *StoreError and annotates anything else.
func storeError(op string, err error) error {
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		return &StoreError{Op: op, Err: awsErr}
	}
	return errors.Annotate(err, op)
}
