package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

const defaultMaxOutstanding = 16

// HTTPAdapter fetches assets over HTTP(S). Independently of the loader's own
// parallelism bound it caps outstanding requests with a weighted semaphore,
// so several loaders can share one adapter without stampeding a server.
type HTTPAdapter struct {
	client  *http.Client
	baseURL string
	sem     *semaphore.Weighted
}

type HTTPOption func(*HTTPAdapter)

// WithHTTPClient replaces the default client (e.g. for custom transports).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(a *HTTPAdapter) { a.client = c }
}

// WithMaxOutstanding caps the number of concurrently outstanding requests.
func WithMaxOutstanding(n int64) HTTPOption {
	return func(a *HTTPAdapter) { a.sem = semaphore.NewWeighted(n) }
}

// NewHTTPAdapter returns an adapter resolving relative URLs against baseURL.
// timeout applies per fetch; zero means no timeout.
func NewHTTPAdapter(baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPAdapter {
	a := &HTTPAdapter{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		sem:     semaphore.NewWeighted(defaultMaxOutstanding),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *HTTPAdapter) Fetch(ctx context.Context, req Request, settle SettleFunc) {
	go func() {
		if err := a.sem.Acquire(ctx, 1); err != nil {
			settle(Result{Err: fmt.Errorf("fetch %s: %w", req.URL, err)})
			return
		}
		defer a.sem.Release(1)
		data, err := a.get(ctx, a.resolve(req.URL))
		settle(Result{Data: data, Err: err})
	}()
}

func (a *HTTPAdapter) resolve(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	if a.baseURL == "" {
		return ref
	}
	return a.baseURL + "/" + strings.TrimPrefix(ref, "/")
}

func (a *HTTPAdapter) get(ctx context.Context, u string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", u, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", u, err)
	}
	return data, nil
}
