package dynamodb

import (
	"errors"

	"github.com/aws/smithy-go"

	pkgerrors "github.com/umeboshi2/kotti-jsonapi/pkg/errors"
)

// classify maps AWS API errors onto the application error taxonomy.
// Throttling surfaces as unavailable so the circuit breaker can count it.
func classify(operation string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
			return pkgerrors.NewUnavailableError("dynamodb", err).WithDetail("operation", operation)
		case "ResourceNotFoundException":
			return pkgerrors.NewInfrastructureError(operation, err).WithCode("TABLE_NOT_FOUND")
		}
	}
	return pkgerrors.NewInfrastructureError(operation, err)
}
