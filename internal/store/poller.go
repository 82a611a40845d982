package store

import (
	"context"
	"time"
)

// StartPolling refreshes the store on a fixed interval until ctx is
// cancelled. Cancelling the poll never aborts an in-flight Mutate; that
// call carries its own context so its completion still reaches the store.
// A failed tick is dropped; the next tick retries.
func (s *Store) StartPolling(ctx context.Context, interval time.Duration, onErr func(error)) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := s.Load(ctx); err != nil && onErr != nil {
					onErr(err)
				}
			}
		}
	}()
}
