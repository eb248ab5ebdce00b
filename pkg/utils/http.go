package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

// DefaultHTTPTimeout bounds every dashboard call made with the shared clients.
const DefaultHTTPTimeout = 15 * time.Second

var (
	HttpClientSkipTlsVerify = NewHTTPClient(true, DefaultHTTPTimeout)
	HttpClient              = NewHTTPClient(false, DefaultHTTPTimeout)
)

// NewHTTPClient honours proxy env vars. insecure skips certificate checks for
// self-signed dashboards.
func NewHTTPClient(insecure bool, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: insecure},
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 4,
		},
		Timeout: timeout,
	}
}
