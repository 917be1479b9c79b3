package intake

import (
	"errors"
	"fmt"
)

// ServiceError is a caller-addressable failure: bad input, a missing archive,
// or an unreadable one. The status code maps directly onto the HTTP facade.
type ServiceError struct {
	StatusCode int
	Message    string
	Detail     string
	Hint       string
}

func (e *ServiceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// AsServiceError unwraps err into a *ServiceError when one is in the chain.
func AsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}
