package utils

import "github.com/google/uuid"

// NewCorrelationID tags one request chain (our endpoint plus every upstream
// call it makes) so a support flow can trace a failure end to end.
func NewCorrelationID() string {
	return uuid.NewString()
}
