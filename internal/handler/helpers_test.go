package handler

import (
	"github.com/aws/aws-sdk-go/aws/awserr"

	"github.com/sakarghimire/product-service/internal/dynamotest"
)

func awsErr(code, message string) awserr.Error {
	return awserr.New(code, message, nil)
}

func reqFailure(code, message string, status int) awserr.Error {
	return dynamotest.RequestFailure(code, message, status).(awserr.Error)
}
