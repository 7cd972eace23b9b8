package bridge

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient returns a client enforcing both a connect timeout and an
// overall request timeout.
func NewHTTPClient(timeout, connectTimeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout * time.Second
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	transport.ResponseHeaderTimeout = timeout

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
