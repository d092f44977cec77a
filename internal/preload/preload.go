// Package preload warms the tool cache at startup by opening bindings for
// the highest-ranked handles from usage history, bounded by a concurrency
// limit. Only the first `count` candidates are attempted; a candidate whose
// open fails is not replaced by a lower-ranked one.
package preload

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/fentz26/toolrouter/internal/cache"
	"github.com/fentz26/toolrouter/internal/catalog"
	"github.com/fentz26/toolrouter/internal/health"
	"github.com/fentz26/toolrouter/internal/logging"
	"github.com/fentz26/toolrouter/internal/toolapi"
	"github.com/fentz26/toolrouter/internal/transport"
)

// Result summarizes one startup preload pass.
type Result struct {
	Opened []toolapi.Handle
	Failed map[toolapi.Handle]error
}

// Run attempts to open bindings for the first `count` candidate handles,
// using at most `concurrency` transports open() calls in flight at once.
// Candidates past the first `count` are never tried, so each failed open
// leaves the cache one binding short. A preload failure never marks Health: an unreachable
// server at startup may simply not be needed for the first turn, and
// penalizing it before any real request touched it would strand it in
// cooldown for no reason.
func Run(ctx context.Context, candidates []toolapi.Handle, reg *catalog.Registry, tr transport.Transport, c *cache.Cache, concurrency, count int) Result {
	if concurrency <= 0 {
		concurrency = 1
	}
	if count <= 0 || len(candidates) == 0 {
		return Result{Failed: map[toolapi.Handle]error{}}
	}
	if count > len(candidates) {
		count = len(candidates)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	type outcome struct {
		handle toolapi.Handle
		err    error
	}
	outcomes := make(chan outcome, count)

	for _, h := range candidates[:count] {
		h := h
		g.Go(func() error {
			entry, ok := reg.Get(h)
			if !ok {
				outcomes <- outcome{handle: h, err: fmt.Errorf("preload: handle %q not in catalog", h)}
				return nil
			}
			binding, err := tr.Open(gctx, transport.Spec{
				Handle:  h,
				Kind:    entry.TransportSpec.Kind,
				Command: entry.TransportSpec.Command,
				Args:    entry.TransportSpec.Args,
				Env:     entry.TransportSpec.Env,
				URL:     entry.TransportSpec.URL,
			})
			if err != nil {
				outcomes <- outcome{handle: h, err: err}
				return nil
			}
			c.Insert(h, binding)
			outcomes <- outcome{handle: h}
			return nil
		})
	}

	_ = g.Wait()
	close(outcomes)

	result := Result{Failed: make(map[toolapi.Handle]error)}
	for o := range outcomes {
		if o.err != nil {
			result.Failed[o.handle] = o.err
			logging.Warnf("preload: %s: %v", o.handle, o.err)
			continue
		}
		result.Opened = append(result.Opened, o.handle)
	}
	return result
}

// CandidatesFromRanking is a small helper the router uses to turn a health
// filter and a metrics ranking into the ordered candidate list Run expects.
func CandidatesFromRanking(ranked []toolapi.Handle, healthy *health.Tracker) []toolapi.Handle {
	return healthy.FilterHealthy(ranked)
}
