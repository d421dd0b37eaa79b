// Package httpc builds the HTTP clients the motionblend CLI talks to a
// server with. Every client carries a timeout and identifies itself.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// UserAgent is sent on every request that does not set its own.
const UserAgent = "go-motionblend"

// Generating long transitions on a CPU backend can take a while, so the
// request timeout is generous. Dialing is not.
const (
	DefaultTimeout  = 2 * time.Minute
	dialTimeout     = 10 * time.Second
	keepAlive       = 30 * time.Second
	idleConnTimeout = 90 * time.Second
)

// Client is shared by callers that do not need their own timeout.
var Client = NewClient(DefaultTimeout)

// NewClient returns a client whose requests give up after timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: agent{next: newTransport()},
	}
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ExpectContinueTimeout: time.Second,
	}
}

// agent stamps the User-Agent header.
type agent struct {
	next http.RoundTripper
}

func (a agent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return a.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", UserAgent)
	return a.next.RoundTrip(r)
}
