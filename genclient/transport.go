package genclient

import (
	"net/http"
	"sync/atomic"
)

// keyTransport adds the API key as a `key` query parameter and remembers the
// last HTTP status it saw, so error bodies without a code can still be classified.
type keyTransport struct {
	key        string
	base       http.RoundTripper
	lastStatus atomic.Int32
}

func newKeyTransport(key string, base http.RoundTripper) *keyTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &keyTransport{key: key, base: base}
}

func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.key)
	r.URL.RawQuery = q.Encode()

	resp, err := t.base.RoundTrip(r)
	if resp != nil {
		t.lastStatus.Store(int32(resp.StatusCode))
	}
	return resp, err
}

func (t *keyTransport) status() int {
	return int(t.lastStatus.Load())
}
