// Package groutine starts named goroutines. Every background unit of the
// manager (discovery, scanner, monitor, one-shot operation workers) runs
// under a pprof label so it can be told apart in goroutine dumps.
package groutine

import (
	"context"
	"runtime/pprof"
)

// Go starts a goroutine with a name and an optional parent context.
//
//	groutine.Go(nil, "pair-worker:AA:BB:CC:DD:EE:FF", func(ctx context.Context) {
//	    // work
//	})
//
// If parentCtx is nil, context.Background() is used.
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	go pprof.Do(parentCtx, pprof.Labels("goroutine_name", name), fn)
}
