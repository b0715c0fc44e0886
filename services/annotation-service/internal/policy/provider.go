// Package policy answers allow/deny for business operations. Evaluation
// itself lives in an external service; this package only carries the verdict.
package policy

import "context"

type Provider interface {
	Allow(ctx context.Context, userID, action, resource string) (bool, error)
}

type allowAll struct{}

// NewAllowAll permits everything. Used when no policy service is configured.
func NewAllowAll() Provider {
	return allowAll{}
}

func (allowAll) Allow(_ context.Context, _, _, _ string) (bool, error) {
	return true, nil
}
