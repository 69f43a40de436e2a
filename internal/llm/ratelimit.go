package llm

import (
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const statusResourceExhausted = "RESOURCE_EXHAUSTED"

// IsRateLimited reports whether err signals quota exhaustion or HTTP 429,
// either as a typed error from one of the clients or by its message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		if se.Code == http.StatusTooManyRequests || se.Status == statusResourceExhausted {
			return true
		}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}

	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, statusResourceExhausted) || strings.Contains(msg, "429")
}
