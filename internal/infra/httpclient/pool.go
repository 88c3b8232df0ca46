package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused by the completion and embedding clients so that
// fan-out stages reuse keep-alive connections to the model server.
var sharedTransport = &http.Transport{
	MaxIdleConns:        40,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client on the shared connection pool.
// A zero timeout leaves the deadline to the request context.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
