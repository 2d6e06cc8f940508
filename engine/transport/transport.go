// Package transport performs the actual byte fetch for one asset descriptor.
// The loader delegates a Request and receives exactly one Result through the
// settle callback; everything else (scheduling, retries-or-not, caching) is
// the loader's business.
package transport

import "context"

// Request identifies one fetch. Key is carried along for logging only; URL is
// already resolved by the loader.
type Request struct {
	Key string
	URL string
}

// Result is the outcome of one fetch. Err set means the fetch failed; Data is
// only valid when Err is nil.
type Result struct {
	Data []byte
	Err  error
}

// SettleFunc receives the outcome of a Fetch. It is called exactly once.
type SettleFunc func(Result)

// Adapter is the pluggable fetch capability. Fetch may invoke settle
// synchronously before returning, or later from another goroutine; the loader
// dispatches fetches outside its own lock so both are safe. settle is called
// exactly once per Fetch.
type Adapter interface {
	Fetch(ctx context.Context, req Request, settle SettleFunc)
}
