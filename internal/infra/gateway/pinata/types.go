package pinata

import (
	"errors"
	"fmt"
	"time"
)

// PinResponse is the body of a successful pinFileToIPFS call
type PinResponse struct {
	IpfsHash    string `json:"IpfsHash"`
	PinSize     int64  `json:"PinSize"`
	Timestamp   string `json:"Timestamp"`
	IsDuplicate bool   `json:"isDuplicate,omitempty"`
}

// Metadata is sent as the pinataMetadata form field
type Metadata struct {
	Name string `json:"name"`
}

// APIError is a non-success response from Pinata
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Pinata API error: status %d, body: %s", e.StatusCode, e.Body)
}

// RateLimitError represents a rate limit error from the Pinata API
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
