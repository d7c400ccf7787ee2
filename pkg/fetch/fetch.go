// Package fetch retrieves encoded image bytes from the network and
// coalesces concurrent requests for the same resource into a single
// network operation.
package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	imgerrors "github.com/go-drift/netimage/pkg/errors"
)

// Getter fetches the raw encoded bytes of a remote resource.
// Implementations must honor ctx cancellation and must not retry on their
// own; retry policy belongs to the caller.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// DefaultTimeout bounds a single HTTP fetch.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBytes caps the size of a fetched response body.
const DefaultMaxBytes = 32 << 20 // 32 MiB

// HTTPGetter fetches resources over HTTP with a shared client.
type HTTPGetter struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPGetter creates a getter with the given per-request timeout and
// response body cap. Non-positive values fall back to DefaultTimeout and
// DefaultMaxBytes.
func NewHTTPGetter(timeout time.Duration, maxBytes int64) *HTTPGetter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPGetter{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Get fetches url and returns the response body. Transport failures and
// non-200 responses are KindNetwork errors; a request ended by ctx is
// KindCanceled.
func (g *HTTPGetter) Get(ctx context.Context, url string) ([]byte, error) {
	const op = "fetch.HTTPGetter.Get"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &imgerrors.Error{Op: op, Kind: imgerrors.KindNetwork, URL: url, Err: err}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &imgerrors.Error{Op: op, Kind: kindFor(ctx, err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &imgerrors.Error{
			Op:   op,
			Kind: imgerrors.KindNetwork,
			URL:  url,
			Err:  fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBytes+1))
	if err != nil {
		return nil, &imgerrors.Error{Op: op, Kind: kindFor(ctx, err), URL: url, Err: err}
	}
	if int64(len(body)) > g.maxBytes {
		return nil, &imgerrors.Error{
			Op:   op,
			Kind: imgerrors.KindNetwork,
			URL:  url,
			Err:  fmt.Errorf("response body exceeds %d bytes", g.maxBytes),
		}
	}
	return body, nil
}

// kindFor classifies a transport error: context death is KindCanceled,
// everything else KindNetwork.
func kindFor(ctx context.Context, err error) imgerrors.ErrorKind {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return imgerrors.KindCanceled
	}
	return imgerrors.KindNetwork
}
