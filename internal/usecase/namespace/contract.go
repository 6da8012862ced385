package namespace

import "context"

// Repository defines the storage contract for namespaces.
type Repository interface {
	Create(ctx context.Context, name string, vectorDim, sparseDim int) error
}
