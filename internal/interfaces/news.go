package interfaces

import "context"

// DocumentSource returns raw headline texts for the given keywords. No
// results is an empty slice, not an error.
type DocumentSource interface {
	FetchDocuments(ctx context.Context, keywords []string) ([]string, error)
}
