// Package netimage loads remote images into decoded, memory-bounded
// bitmaps ready for display.
//
// # Pipeline
//
// A Loader owns the pipeline: a synchronous cache probe, then on a miss
// a coalesced network fetch, a size-aware decode, and a cache insert:
//
//	loader, err := netimage.NewLoader(netimage.Options{Scale: 3})
//	if err != nil {
//		return err
//	}
//	img, err := loader.Load(ctx, "https://cdn.example.com/p/42.jpg",
//		netimage.Size{Width: 56, Height: 56})
//
// Concurrent loads of one resource share a single network operation, and
// each requested size is cached independently, so a thumbnail and a
// full-resolution decode of the same photo coexist without a refetch.
//
// # Phases
//
// UI consumers track a load through a Request, which models the life of
// its current identity (resource plus size) as a Phase: empty, loading,
// success or failure.
//
//	req := loader.NewRequest()
//	req.OnPhase = func(p netimage.Phase) {
//		// schedule a repaint
//	}
//	req.Set("https://cdn.example.com/p/42.jpg", netimage.Size{Width: 56, Height: 56})
//
// Setting a new identity supersedes the in-flight work for that request
// only; a shared fetch keeps running while any other request is joined
// to it. Re-setting an unchanged identity is a no-op while loading or
// after success, and restarts the pipeline after a failure. Failures are
// never cached.
package netimage
