package fk

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SynchronizeAll waits on several streams concurrently and returns the
// first error. Streams are independent queues, so one slow stream does not
// delay observing the others. Nil streams are skipped.
func SynchronizeAll(ctx context.Context, streams ...Stream) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range streams {
		if s == nil {
			continue
		}
		g.Go(func() error {
			return s.Synchronize(ctx)
		})
	}
	return g.Wait()
}
