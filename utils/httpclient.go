package utils

import (
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	probeHTTPClientTimeout         = 20 * time.Second
	probeHTTPDialTimeout           = 5 * time.Second
	probeHTTPKeepAlive             = 30 * time.Second
	probeHTTPTLSHandshakeTimeout   = 5 * time.Second
	probeHTTPResponseHeaderTimeout = 10 * time.Second
	probeHTTPIdleConnTimeout       = 90 * time.Second
)

var probeHTTPTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   probeHTTPDialTimeout,
		KeepAlive: probeHTTPKeepAlive,
	}).DialContext,
	TLSHandshakeTimeout:   probeHTTPTLSHandshakeTimeout,
	ResponseHeaderTimeout: probeHTTPResponseHeaderTimeout,
	IdleConnTimeout:       probeHTTPIdleConnTimeout,
}

func newRetryableHTTPClient(retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	retryClient.HTTPClient = &http.Client{
		Timeout:   probeHTTPClientTimeout,
		Transport: probeHTTPTransport,
	}

	return retryClient.StandardClient()
}
