package battle

import "context"

// ViewCache stores JSON-serializable read views
type ViewCache interface {
	// Get decodes the cached value for key into dst and reports whether it was found
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set stores value under key with the cache's TTL
	Set(ctx context.Context, key string, value any) error

	// Delete removes keys; missing keys are not an error
	Delete(ctx context.Context, keys ...string) error
}
