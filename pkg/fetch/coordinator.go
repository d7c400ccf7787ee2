package fetch

import (
	"context"
	"sync"
	"sync/atomic"

	imgerrors "github.com/go-drift/netimage/pkg/errors"
)

// Coordinator deduplicates fetches so that at most one network operation
// is in flight per resource. Concurrent Fetch calls for the same url join
// the existing operation and all receive the identical result.
//
// The registry holds only in-flight work. An entry is removed before its
// result is delivered, so a Fetch issued after a completion always starts
// a fresh network operation. Results are never cached here; caching
// belongs to the layers above.
type Coordinator struct {
	getter Getter

	mu       sync.Mutex
	inflight map[string]*flight

	fetches atomic.Uint64
}

// flight is one shared in-progress fetch.
type flight struct {
	done    chan struct{} // closed after the registry entry is removed
	data    []byte
	err     error
	waiters int
	cancel  context.CancelFunc
}

// NewCoordinator creates a coordinator that performs its network
// operations through getter, which must be non-nil.
func NewCoordinator(getter Getter) *Coordinator {
	return &Coordinator{
		getter:   getter,
		inflight: make(map[string]*flight),
	}
}

// Fetch returns the encoded bytes for url, joining an in-flight fetch for
// the same url when one exists.
//
// When ctx ends first, only this caller gives up and receives a
// KindCanceled error; the shared fetch keeps running as long as any other
// waiter remains, and is cancelled once the last waiter detaches.
func (c *Coordinator) Fetch(ctx context.Context, url string) ([]byte, error) {
	c.mu.Lock()
	f, ok := c.inflight[url]
	if !ok {
		runCtx, cancel := context.WithCancel(context.Background())
		f = &flight{done: make(chan struct{}), cancel: cancel}
		c.inflight[url] = f
		c.fetches.Add(1)
		go c.run(runCtx, url, f)
	}
	f.waiters++
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.data, f.err
	case <-ctx.Done():
		c.detach(url, f)
		return nil, &imgerrors.Error{
			Op:   "fetch.Coordinator.Fetch",
			Kind: imgerrors.KindCanceled,
			URL:  url,
			Err:  ctx.Err(),
		}
	}
}

// run performs the single network operation for f and publishes its
// result. The registry entry is removed before done is closed: by the
// time any waiter observes the outcome, a new Fetch for the same url
// starts from scratch.
func (c *Coordinator) run(ctx context.Context, url string, f *flight) {
	data, err := c.getter.Get(ctx, url)

	c.mu.Lock()
	f.data, f.err = data, err
	delete(c.inflight, url)
	c.mu.Unlock()

	f.cancel()
	close(f.done)
}

// detach drops one waiter from f. The last waiter to leave an unfinished
// flight cancels the underlying network operation: with nobody left to
// consume the bytes, the result would be discarded anyway.
func (c *Coordinator) detach(url string, f *flight) {
	c.mu.Lock()
	f.waiters--
	abandoned := f.waiters == 0 && c.inflight[url] == f
	c.mu.Unlock()

	if abandoned {
		f.cancel()
	}
}

// Fetches returns the number of network operations started since the
// coordinator was created, counting each coalesced group once.
func (c *Coordinator) Fetches() uint64 {
	return c.fetches.Load()
}

// Inflight returns the number of resources currently being fetched.
func (c *Coordinator) Inflight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}
