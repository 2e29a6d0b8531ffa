// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"fmt"

	"github.com/graphweave/graphweave/internal/discovery"
)

// Discoverer produces the partial set that Reload publishes.
type Discoverer interface {
	Discover(ctx context.Context) (discovery.Result, error)
}

var _ Discoverer = (*discovery.Discovery)(nil)

// Reload runs d and publishes the discovered partials as a new snapshot.
// Diagnostics do not block publication: a partial with a broken requirement
// chain stays selectable and the failure surfaces when it is resolved.
// On error the previous snapshot stays current.
func (r *Registry) Reload(ctx context.Context, d Discoverer) (discovery.Result, *Snapshot, error) {
	result, err := d.Discover(ctx)
	if err != nil {
		return result, nil, fmt.Errorf("discover partials: %w", err)
	}
	if n := len(result.Diagnostics); n > 0 {
		r.logger.Warn("Discovery reported problems", "diagnostics", n, "errors", result.HasErrors())
	}
	snap, err := r.Publish(result.Partials)
	if err != nil {
		return result, nil, err
	}
	return result, snap, nil
}
