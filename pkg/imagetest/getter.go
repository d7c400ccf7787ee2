package imagetest

import (
	"context"
	"fmt"
	"sync"
)

// Getter is a scripted fetcher. Responses and failures are registered per
// URL and every call is counted; individual URLs can be gated so a test
// holds a fetch open while it observes coalescing or cancellation.
//
// A URL with no script returns an error, so tests fail loudly on
// unexpected fetches.
type Getter struct {
	mu        sync.Mutex
	responses map[string][]byte
	failures  map[string]error
	calls     map[string]int
	gates     map[string]chan struct{}
}

// NewGetter returns an empty scripted getter.
func NewGetter() *Getter {
	return &Getter{
		responses: make(map[string][]byte),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
		gates:     make(map[string]chan struct{}),
	}
}

// Respond scripts data as the response for url, clearing any failure.
func (g *Getter) Respond(url string, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses[url] = data
	delete(g.failures, url)
}

// Fail scripts err as the outcome for url, clearing any response.
func (g *Getter) Fail(url string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[url] = err
	delete(g.responses, url)
}

// Gate holds every Get for url open until the returned release function
// is called. Release is safe to call more than once. A gated Get still
// honors its context.
func (g *Getter) Gate(url string) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	gate := make(chan struct{})
	g.gates[url] = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// Calls returns how many times url has been fetched.
func (g *Getter) Calls(url string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[url]
}

// TotalCalls returns how many fetches have been issued across all URLs.
func (g *Getter) TotalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := 0
	for _, n := range g.calls {
		total += n
	}
	return total
}

// Get implements the fetch getter contract against the script.
func (g *Getter) Get(ctx context.Context, url string) ([]byte, error) {
	g.mu.Lock()
	g.calls[url]++
	gate := g.gates[url]
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.failures[url]; ok {
		return nil, err
	}
	if data, ok := g.responses[url]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("imagetest: no response scripted for %s", url)
}
