package fetch

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	imgerrors "github.com/go-drift/netimage/pkg/errors"
)

// stubGetter scripts responses per url and counts calls. A gate channel
// can hold fetches open so tests observe coalescing deterministically.
type stubGetter struct {
	mu    sync.Mutex
	calls map[string]int
	data  map[string][]byte
	errs  map[string]error
	gate  chan struct{}
}

func (g *stubGetter) Get(ctx context.Context, url string) ([]byte, error) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[url]++
	gate := g.gate
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
	if err := g.errs[url]; err != nil {
		return nil, err
	}
	if data, ok := g.data[url]; ok {
		return data, nil
	}
	return nil, stderrors.New("no response for " + url)
}

func (g *stubGetter) callCount(url string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[url]
}

// waitForWaiters polls until the flight for url has at least n waiters.
func waitForWaiters(t *testing.T, c *Coordinator, url string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		c.mu.Lock()
		f := c.inflight[url]
		waiters := 0
		if f != nil {
			waiters = f.waiters
		}
		c.mu.Unlock()
		if waiters >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("flight for %s never reached %d waiters (have %d)", url, n, waiters)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitForEmptyRegistry polls until no fetches are in flight.
func waitForEmptyRegistry(t *testing.T, c *Coordinator) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if c.Inflight() == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("registry never drained: %d entries remain", c.Inflight())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFetchReturnsBytes(t *testing.T) {
	g := &stubGetter{data: map[string][]byte{"https://example.com/a.png": []byte("payload")}}
	c := NewCoordinator(g)

	data, err := c.Fetch(context.Background(), "https://example.com/a.png")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("data = %q, want %q", data, "payload")
	}
	if got := c.Fetches(); got != 1 {
		t.Errorf("Fetches() = %d, want 1", got)
	}
}

func TestFetchCoalescesConcurrentRequests(t *testing.T) {
	const url = "https://example.com/shared.png"
	gate := make(chan struct{})
	g := &stubGetter{
		data: map[string][]byte{url: []byte("shared")},
		gate: gate,
	}
	c := NewCoordinator(g)

	const n = 16
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			data, err := c.Fetch(context.Background(), url)
			if err == nil && string(data) != "shared" {
				err = stderrors.New("wrong payload: " + string(data))
			}
			results <- err
		}()
	}

	waitForWaiters(t, c, url, n)
	close(gate)

	for i := 0; i < n; i++ {
		if err := <-results; err != nil {
			t.Errorf("waiter %d: %v", i, err)
		}
	}
	if got := g.callCount(url); got != 1 {
		t.Errorf("network calls = %d, want 1", got)
	}
	if got := c.Fetches(); got != 1 {
		t.Errorf("Fetches() = %d, want 1", got)
	}
	if got := c.Inflight(); got != 0 {
		t.Errorf("Inflight() = %d, want 0 after completion", got)
	}
}

func TestFetchSharesErrorAcrossWaiters(t *testing.T) {
	const url = "https://example.com/broken.png"
	gate := make(chan struct{})
	wantErr := stderrors.New("connection reset")
	g := &stubGetter{
		errs: map[string]error{url: wantErr},
		gate: gate,
	}
	c := NewCoordinator(g)

	const n = 8
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := c.Fetch(context.Background(), url)
			results <- err
		}()
	}

	waitForWaiters(t, c, url, n)
	close(gate)

	for i := 0; i < n; i++ {
		if err := <-results; !stderrors.Is(err, wantErr) {
			t.Errorf("waiter %d: err = %v, want %v", i, err, wantErr)
		}
	}
	if got := g.callCount(url); got != 1 {
		t.Errorf("network calls = %d, want 1", got)
	}
	if got := c.Inflight(); got != 0 {
		t.Errorf("Inflight() = %d, want 0 after failed fetch", got)
	}
}

func TestFetchStartsFreshAfterCompletion(t *testing.T) {
	const url = "https://example.com/twice.png"
	g := &stubGetter{data: map[string][]byte{url: []byte("x")}}
	c := NewCoordinator(g)

	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(context.Background(), url); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}
	if got := g.callCount(url); got != 2 {
		t.Errorf("network calls = %d, want 2 for sequential fetches", got)
	}
}

func TestFetchDistinctResourcesRunIndependently(t *testing.T) {
	g := &stubGetter{data: map[string][]byte{
		"https://example.com/a.png": []byte("a"),
		"https://example.com/b.png": []byte("b"),
	}}
	c := NewCoordinator(g)

	dataA, err := c.Fetch(context.Background(), "https://example.com/a.png")
	if err != nil {
		t.Fatalf("Fetch a: %v", err)
	}
	dataB, err := c.Fetch(context.Background(), "https://example.com/b.png")
	if err != nil {
		t.Fatalf("Fetch b: %v", err)
	}
	if string(dataA) != "a" || string(dataB) != "b" {
		t.Errorf("payloads = %q, %q, want a, b", dataA, dataB)
	}
	if got := c.Fetches(); got != 2 {
		t.Errorf("Fetches() = %d, want 2", got)
	}
}

func TestFetchWaiterCancelKeepsSharedFetchAlive(t *testing.T) {
	const url = "https://example.com/slow.png"
	gate := make(chan struct{})
	g := &stubGetter{
		data: map[string][]byte{url: []byte("slow")},
		gate: gate,
	}
	c := NewCoordinator(g)

	stayResult := make(chan error, 1)
	go func() {
		data, err := c.Fetch(context.Background(), url)
		if err == nil && string(data) != "slow" {
			err = stderrors.New("wrong payload")
		}
		stayResult <- err
	}()
	waitForWaiters(t, c, url, 1)

	ctx, cancel := context.WithCancel(context.Background())
	leaveResult := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, url)
		leaveResult <- err
	}()
	waitForWaiters(t, c, url, 2)

	cancel()
	err := <-leaveResult
	if !imgerrors.IsKind(err, imgerrors.KindCanceled) {
		t.Fatalf("cancelled waiter err = %v, want KindCanceled", err)
	}

	// The remaining waiter still gets the bytes from the single call.
	close(gate)
	if err := <-stayResult; err != nil {
		t.Fatalf("remaining waiter failed: %v", err)
	}
	if got := g.callCount(url); got != 1 {
		t.Errorf("network calls = %d, want 1", got)
	}
}

func TestFetchLastWaiterCancelAbandonsOperation(t *testing.T) {
	const url = "https://example.com/abandoned.png"
	gate := make(chan struct{})
	g := &stubGetter{
		data: map[string][]byte{url: []byte("x")},
		gate: gate,
	}
	c := NewCoordinator(g)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, url)
		result <- err
	}()
	waitForWaiters(t, c, url, 1)

	cancel()
	if err := <-result; !imgerrors.IsKind(err, imgerrors.KindCanceled) {
		t.Fatalf("err = %v, want KindCanceled", err)
	}

	// The abandoned flight sees its context die, finishes, and clears the
	// registry so the next fetch starts over.
	waitForEmptyRegistry(t, c)
	close(gate)

	if _, err := c.Fetch(context.Background(), url); err != nil {
		t.Fatalf("fetch after abandon failed: %v", err)
	}
	if got := g.callCount(url); got != 2 {
		t.Errorf("network calls = %d, want 2 (abandoned + fresh)", got)
	}
}
