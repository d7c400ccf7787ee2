package netimage

import (
	"context"
	"sync"
)

// Request tracks one consumer's image load as a phase state machine.
// A drift widget typically owns one Request per image slot and calls Set
// whenever its configuration changes; the request decides whether that
// means new work, a cached answer or nothing at all.
//
// Methods are safe for concurrent use, though the common pattern is a
// single owner calling Set and a pipeline goroutine completing loads.
type Request struct {
	loader *Loader

	// OnPhase is called after each phase transition with the phase
	// current at delivery time, so rapid transitions may collapse into
	// fewer calls. Deliveries run on the loader's Notify trampoline when
	// one is configured, otherwise on the goroutine that caused the
	// transition. Set OnPhase before the first call to Set.
	OnPhase func(Phase)

	mu       sync.Mutex
	ref      Ref
	size     Size
	phase    Phase
	phaseSeq uint64
	gen      uint64
	cancel   context.CancelFunc
	closed   bool
}

// NewRequest creates an idle request in PhaseEmpty.
func (l *Loader) NewRequest() *Request {
	return &Request{loader: l}
}

// Set points the request at an identity and re-evaluates its phase.
//
// An unchanged identity is a no-op while the load is running, already
// succeeded or the request is empty; after a failure it runs the
// pipeline again, which is how callers retry. A changed identity
// supersedes the in-flight work for this request only: the shared fetch
// keeps running while other requests are joined to it.
//
// A zero ref clears the request to PhaseEmpty. A cached identity
// resolves to PhaseSuccess synchronously, with no loading phase in
// between.
func (r *Request) Set(ref Ref, size Size) {
	size = size.normalize()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if ref == r.ref && size == r.size && r.phase.State != PhaseFailure {
		r.mu.Unlock()
		return
	}

	r.gen++
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.ref, r.size = ref, size

	if ref.IsZero() {
		deliver := r.setPhaseLocked(Phase{State: PhaseEmpty})
		r.mu.Unlock()
		r.dispatch(deliver)
		return
	}

	if img, ok := r.loader.Lookup(ref, size); ok {
		deliver := r.setPhaseLocked(Phase{State: PhaseSuccess, Image: img})
		r.mu.Unlock()
		r.dispatch(deliver)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	deliver := r.setPhaseLocked(Phase{State: PhaseLoading})
	r.mu.Unlock()
	r.dispatch(deliver)

	go r.run(ctx, cancel, gen, ref, size)
}

// run executes the pipeline for one generation and records the outcome,
// unless the request has moved on or closed in the meantime.
func (r *Request) run(ctx context.Context, cancel context.CancelFunc, gen uint64, ref Ref, size Size) {
	defer cancel()
	img, err := r.loader.Load(ctx, ref, size)

	r.mu.Lock()
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.cancel = nil
	var deliver func()
	if err != nil {
		deliver = r.setPhaseLocked(Phase{State: PhaseFailure, Err: err})
	} else {
		deliver = r.setPhaseLocked(Phase{State: PhaseSuccess, Image: img})
	}
	r.mu.Unlock()
	r.dispatch(deliver)
}

// Phase returns the current phase.
func (r *Request) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Identity returns the ref and size the request currently tracks.
func (r *Request) Identity() (Ref, Size) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ref, r.size
}

// Close abandons any in-flight work for this request and stops phase
// notifications. A shared fetch is cancelled only when no other request
// remains joined to it. Close is idempotent.
func (r *Request) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
}

// setPhaseLocked records a transition and returns the delivery to run
// after the lock is released, or nil when nobody is listening. The
// delivery re-reads the phase, so a stale delivery that lost the race to
// a newer transition drops itself and leaves the newer delivery to
// report the latest phase.
func (r *Request) setPhaseLocked(p Phase) func() {
	r.phase = p
	r.phaseSeq++
	cb := r.OnPhase
	if cb == nil {
		return nil
	}
	seq := r.phaseSeq
	return func() {
		r.mu.Lock()
		if r.closed || seq != r.phaseSeq {
			r.mu.Unlock()
			return
		}
		current := r.phase
		r.mu.Unlock()
		cb(current)
	}
}

// dispatch runs a delivery directly or through the loader's notify
// trampoline.
func (r *Request) dispatch(fn func()) {
	if fn == nil {
		return
	}
	if notify := r.loader.notify; notify != nil {
		notify(fn)
		return
	}
	fn()
}
