package netimage

import (
	"context"

	"github.com/go-drift/netimage/pkg/diskcache"
	imgerrors "github.com/go-drift/netimage/pkg/errors"
	"github.com/go-drift/netimage/pkg/fetch"
)

// diskGetter layers the disk tier in front of the network getter: hits
// are served from disk, fresh bytes are written back through. Because it
// sits behind the fetch coordinator, disk reads share the coalescing
// guarantees of network fetches.
type diskGetter struct {
	disk *diskcache.Cache
	next fetch.Getter
}

func (g *diskGetter) Get(ctx context.Context, url string) ([]byte, error) {
	if data, ok := g.disk.Get(url); ok {
		return data, nil
	}
	data, err := g.next.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := g.disk.Put(url, data); err != nil {
		// A write failure degrades to fetch-only; the bytes still flow.
		imgerrors.Report(&imgerrors.Error{
			Op:   "netimage.diskGetter.Get",
			Kind: imgerrors.KindUnknown,
			URL:  url,
			Err:  err,
		})
	}
	return data, nil
}
