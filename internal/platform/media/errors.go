package media

import (
	"errors"
	"fmt"
)

// Reason is why a file was rejected locally
type Reason string

const (
	ReasonUnsupportedType Reason = "unsupported_type"
	ReasonTooLarge        Reason = "too_large"
)

// ValidationError is returned before any network call when a file breaks the upload rules
type ValidationError struct {
	Reason      Reason
	ContentType string
	Size        int64
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonTooLarge:
		return fmt.Sprintf("file exceeds 10MB limit (%d bytes)", e.Size)
	default:
		return fmt.Sprintf("unsupported file type %q: use JPG, PNG, GIF, or WebP", e.ContentType)
	}
}

// ErrEmptyFile is returned for zero-byte uploads
var ErrEmptyFile = errors.New("file is empty")

// AsValidationError unwraps a *ValidationError from err
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
