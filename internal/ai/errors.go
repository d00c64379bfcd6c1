package ai

import "fmt"

// ServiceError reports a completion call that failed after exhausting all
// retry attempts. Message carries the last underlying error.
type ServiceError struct {
	Provider string
	Message  string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ai service error (%s): %s", e.Provider, e.Message)
}
