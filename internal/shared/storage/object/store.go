package object

import "context"

// ObjectStore defines the contract for fetching and storing binary objects.
// Put returns a stable, publicly retrievable URL for the written object.
type ObjectStore interface {
	Get(ctx context.Context, storageKey string) ([]byte, error)
	Put(ctx context.Context, storageKey string, contentType string, data []byte) (publicURL string, err error)
}
