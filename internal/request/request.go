package request

import (
	"net"
	"net/http"
	"strings"
)

const (
	// SchemeHTTP name for the HTTP scheme
	SchemeHTTP = "http"
	// SchemeHTTPS name for the HTTPS scheme
	SchemeHTTPS = "https"
)

// IsHTTPS checks whether the request originated from HTTPS, either
// directly or via a forwarding proxy
func IsHTTPS(r *http.Request) bool {
	return r.URL.Scheme == SchemeHTTPS || r.TLS != nil
}

// GetHostWithoutPort returns a host without the port. The host(:port) comes
// from a Host: header if it is provided, otherwise it is a server name.
func GetHostWithoutPort(r *http.Request) string {
	host := r.Host

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}

	return host
}

// GetRemoteAddrWithoutPort returns remote addr without the port
func GetRemoteAddrWithoutPort(r *http.Request) string {
	if remoteAddr, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return remoteAddr
	}

	return r.RemoteAddr
}

// FirstForwardedFor returns the first address from the X-Forwarded-For
// header, which is the client address when the service runs behind a
// trusted reverse proxy.
func FirstForwardedFor(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return ""
	}

	return strings.TrimSpace(strings.Split(forwarded, ",")[0])
}
