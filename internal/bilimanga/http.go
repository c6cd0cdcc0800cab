package bilimanga

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Transport is shared by every gateway client so connections are reused across calls
var Transport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          20,
	MaxIdleConnsPerHost:   4,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// checkStatusCode turns an HTTP-level failure into an error; the body is decoded only on 200
func checkStatusCode(statusCode int) error {
	switch statusCode {
	case http.StatusOK:
		return nil

	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("access denied: status code %d", statusCode)

	case http.StatusNotFound:
		return fmt.Errorf("endpoint not found: status code %d", statusCode)

	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout, http.StatusInternalServerError:
		return fmt.Errorf("server error: status code %d", statusCode)

	default:
		return fmt.Errorf("unexpected status code %d", statusCode)
	}
}
