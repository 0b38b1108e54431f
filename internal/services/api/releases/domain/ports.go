package domain

import "context"

// ServicePort runs scans for the releases endpoints
type ServicePort interface {
	Search(ctx context.Context, q Query) (Result, error)
}
