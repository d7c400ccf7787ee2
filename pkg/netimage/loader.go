package netimage

import (
	"context"
	stderrors "errors"
	"image"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/go-drift/netimage/pkg/decode"
	"github.com/go-drift/netimage/pkg/diskcache"
	imgerrors "github.com/go-drift/netimage/pkg/errors"
	"github.com/go-drift/netimage/pkg/fetch"
	"github.com/go-drift/netimage/pkg/memcache"
)

// DefaultCacheBudget bounds the decoded-bitmap cache.
const DefaultCacheBudget int64 = 64 << 20 // 64 MiB

// ErrEmptyRef is returned by Load when given a zero Ref.
var ErrEmptyRef = stderrors.New("netimage: empty resource ref")

// Options configure a Loader. The zero value is usable: HTTP fetching
// with default limits, a 64 MiB bitmap cache, device scale 1 and no disk
// tier.
type Options struct {
	// Getter fetches raw image bytes. Nil uses an HTTP getter with the
	// default timeout and body cap.
	Getter fetch.Getter

	// CacheBudget bounds the decoded-bitmap cache in bytes.
	// Non-positive applies DefaultCacheBudget.
	CacheBudget int64

	// Scale is the device scale factor (physical pixels per logical
	// unit) applied when sizing thumbnails. Non-positive means 1.
	Scale float64

	// Quality selects the downsampling kernel.
	Quality decode.Quality

	// MaxConcurrentDecodes bounds simultaneous decodes so a burst of
	// cache misses cannot spike pixel memory. Non-positive uses
	// GOMAXPROCS.
	MaxConcurrentDecodes int

	// MaxSourcePixels rejects sources that declare more pixels before
	// any pixel memory is allocated. Non-positive applies
	// decode.DefaultMaxSourcePixels.
	MaxSourcePixels int64

	// DiskDir enables a durable byte tier under this directory, serving
	// repeat fetches across process restarts. Empty keeps the loader
	// memory-only.
	DiskDir string

	// DiskBudget bounds the disk tier in bytes. Non-positive applies
	// diskcache.DefaultBudget.
	DiskBudget int64

	// Notify, when set, delivers Request phase callbacks, for example
	// onto a UI thread. Deliveries must run in submission order. Nil
	// invokes callbacks directly on the goroutine that caused the
	// transition.
	Notify func(func())
}

// Loader drives the fetch, decode and cache pipeline and hands out
// Requests. All methods are safe for concurrent use.
type Loader struct {
	coord           *fetch.Coordinator
	cache           *memcache.Store[Key, *image.RGBA]
	disk            *diskcache.Cache // nil without a disk tier
	scale           float64
	quality         decode.Quality
	maxSourcePixels int64
	decodeGate      chan struct{}
	notify          func(func())

	hits     atomic.Uint64
	misses   atomic.Uint64
	failures atomic.Uint64
}

// NewLoader creates a Loader from opts. It fails only when a configured
// disk tier cannot be opened.
func NewLoader(opts Options) (*Loader, error) {
	getter := opts.Getter
	if getter == nil {
		getter = fetch.NewHTTPGetter(0, 0)
	}
	budget := opts.CacheBudget
	if budget <= 0 {
		budget = DefaultCacheBudget
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	decodes := opts.MaxConcurrentDecodes
	if decodes <= 0 {
		decodes = runtime.GOMAXPROCS(0)
	}

	l := &Loader{
		cache:           memcache.New[Key, *image.RGBA](budget),
		scale:           scale,
		quality:         opts.Quality,
		maxSourcePixels: opts.MaxSourcePixels,
		decodeGate:      make(chan struct{}, decodes),
		notify:          opts.Notify,
	}

	if opts.DiskDir != "" {
		disk, err := diskcache.New(opts.DiskDir, opts.DiskBudget)
		if err != nil {
			return nil, err
		}
		l.disk = disk
		getter = &diskGetter{disk: disk, next: getter}
	}
	l.coord = fetch.NewCoordinator(getter)
	return l, nil
}

// Lookup probes the bitmap cache synchronously. A hit can be rendered in
// the same frame; the returned bitmap is shared and must be treated as
// read-only.
func (l *Loader) Lookup(ref Ref, size Size) (image.Image, bool) {
	if ref.IsZero() {
		return nil, false
	}
	img, ok := l.cache.Get(Key{Ref: ref, Size: size.normalize()})
	if !ok {
		return nil, false
	}
	l.hits.Add(1)
	return img, true
}

// Load returns the bitmap for ref at size, running the pipeline on a
// cache miss: a fetch coalesced with concurrent loads of the same ref, a
// decode bounded to the target size, and a cache insert. The returned
// bitmap is shared and read-only.
//
// A failed run leaves no cache entry, so a later Load for the same
// identity starts over from the fetch. Fetch and decode failures are
// also reported through the errors handler; cancellations are returned
// but neither counted nor reported.
func (l *Loader) Load(ctx context.Context, ref Ref, size Size) (image.Image, error) {
	if ref.IsZero() {
		return nil, ErrEmptyRef
	}
	size = size.normalize()

	if img, ok := l.Lookup(ref, size); ok {
		return img, nil
	}
	l.misses.Add(1)

	data, err := l.coord.Fetch(ctx, string(ref))
	if err != nil {
		return nil, l.fail(err)
	}

	if err := l.acquireDecode(ctx); err != nil {
		return nil, l.fail(&imgerrors.Error{
			Op:   "netimage.Loader.Load",
			Kind: imgerrors.KindCanceled,
			URL:  string(ref),
			Err:  err,
		})
	}
	img, err := decode.Decode(data, decode.Options{
		LongestEdge:     size.longestEdge(l.scale),
		MaxSourcePixels: l.maxSourcePixels,
		Quality:         l.quality,
	})
	l.releaseDecode()
	if err != nil {
		return nil, l.fail(err)
	}

	l.cache.Set(Key{Ref: ref, Size: size}, img, decode.Cost(img))
	return img, nil
}

// Prefetch warms the cache for refs at size, running at most
// MaxConcurrentDecodes loads at a time. Each ref is attempted regardless
// of earlier failures; the first error is returned once all loads have
// finished. Zero refs are skipped.
func (l *Loader) Prefetch(ctx context.Context, refs []Ref, size Size) error {
	var eg errgroup.Group
	eg.SetLimit(cap(l.decodeGate))
	for _, ref := range refs {
		if ref.IsZero() {
			continue
		}
		ref := ref
		eg.Go(func() error {
			_, err := l.Load(ctx, ref, size)
			return err
		})
	}
	return eg.Wait()
}

// Evict drops the cached bitmap for one identity, if resident.
func (l *Loader) Evict(ref Ref, size Size) bool {
	return l.cache.Delete(Key{Ref: ref, Size: size.normalize()})
}

// Stats is a point-in-time snapshot of loader activity.
type Stats struct {
	Hits      uint64 // cache probes that returned a bitmap
	Misses    uint64 // pipeline runs started on a cache miss
	Fetches   uint64 // network operations issued, counting a coalesced group once
	Failures  uint64 // pipeline runs that ended in error, cancellations excluded
	Evictions uint64 // bitmap-cache entries evicted under budget pressure
	CacheLen  int    // resident bitmap count
	CacheCost int64  // resident bitmap bytes
}

// Stats returns current counters. Fields are read individually, so a
// snapshot taken during concurrent loads is indicative, not atomic.
func (l *Loader) Stats() Stats {
	return Stats{
		Hits:      l.hits.Load(),
		Misses:    l.misses.Load(),
		Fetches:   l.coord.Fetches(),
		Failures:  l.failures.Load(),
		Evictions: l.cache.Evictions(),
		CacheLen:  l.cache.Len(),
		CacheCost: l.cache.Cost(),
	}
}

// fail counts and reports a pipeline error. Cancellations pass through
// untouched: an abandoned load is routine, not a failure.
func (l *Loader) fail(err error) error {
	if imgerrors.IsKind(err, imgerrors.KindCanceled) ||
		stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	l.failures.Add(1)
	var e *imgerrors.Error
	if stderrors.As(err, &e) {
		// Report a copy: the same error value fans out to every waiter
		// of a coalesced fetch.
		re := *e
		imgerrors.Report(&re)
	}
	return err
}

func (l *Loader) acquireDecode(ctx context.Context) error {
	select {
	case l.decodeGate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loader) releaseDecode() {
	<-l.decodeGate
}
