package media

import "context"

// Pinner stores bytes with a display name and returns their content identifier
type Pinner interface {
	Pin(ctx context.Context, name, contentType string, data []byte) (string, error)
}
