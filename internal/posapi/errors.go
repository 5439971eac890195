package posapi

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks failures to reach the backend or to read its answer.
var ErrUnavailable = errors.New("posapi: backend unavailable")

// DefaultCheckoutDetail is used when a rejected checkout carries no detail.
const DefaultCheckoutDetail = "Error en el checkout"

// APIError is a non-success HTTP answer from the backend.
type APIError struct {
	Endpoint string
	Status   int
	Detail   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("posapi: %s returned %d: %s", e.Endpoint, e.Status, e.Detail)
}

func unavailable(endpoint string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, endpoint, err)
}
