package client

import (
	"context"
	"fmt"
	"time"

	"nearcore/internal/store"
)

// StableIDCache resolves the local endpoint id a session should advertise
// under, reusing a cached id across stop/start pairs when the client opts
// into stable or high-visibility endpoint id mode (spec.md §4.5 "Advertising"
// step 3, §8 "Endpoint-id stability" law).
type StableIDCache struct {
	store   *store.Store
	timeout time.Duration
}

// NewStableIDCache returns a cache backed by st, caching ids for timeout
// (spec.md §9 default: 20s, internal/flags.Snapshot.StableEndpointIDCacheTimeout).
func NewStableIDCache(st *store.Store, timeout time.Duration) *StableIDCache {
	return &StableIDCache{store: st, timeout: timeout}
}

// ShouldEnterStableEndpointIdMode decides whether a session should reuse a
// cached endpoint id across an advertising stop/start pair.
//
// This preserves a fallback conflict observed in the original source
// (DESIGN.md decision 2) rather than resolving it: the explicit
// use_stable_endpoint_id flag wins when set; otherwise, low_power forces
// id rotation; otherwise the legacy fallback enters stable mode by default.
// Flagged, not fixed.
func ShouldEnterStableEndpointIdMode(opts Options) bool {
	if opts.UseStableEndpointID {
		return true
	}
	if opts.LowPower {
		return false
	}
	return true
}

// Resolve returns the endpoint id a session should advertise under for
// (serviceID, clientID). If stable mode applies and a non-expired cached id
// exists, it's returned and its expiry refreshed; otherwise a freshly
// generated id is cached (if stable mode applies) or returned bare.
func (c *StableIDCache) Resolve(ctx context.Context, serviceID, clientID string, opts Options) (string, error) {
	stable := ShouldEnterStableEndpointIdMode(opts)
	now := time.Now()

	if stable {
		if cached, err := c.store.GetStableEndpointID(ctx, serviceID, clientID, now); err == nil {
			if putErr := c.store.PutStableEndpointID(ctx, serviceID, clientID, cached, now.Add(c.timeout)); putErr != nil {
				return "", fmt.Errorf("client: refresh stable endpoint id: %w", putErr)
			}
			return cached, nil
		} else if err != store.ErrStableIDNotFound {
			return "", fmt.Errorf("client: lookup stable endpoint id: %w", err)
		}
	}

	id, err := generateEndpointID()
	if err != nil {
		return "", err
	}
	if stable {
		if err := c.store.PutStableEndpointID(ctx, serviceID, clientID, id, now.Add(c.timeout)); err != nil {
			return "", fmt.Errorf("client: cache new stable endpoint id: %w", err)
		}
	}
	return id, nil
}
