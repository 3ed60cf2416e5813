package shared

import (
	"net"
	"net/http"
)

// RateLimitIdentity names the quota a request counts against. It prefers the
// API key, then the user, then the client address.
func RateLimitIdentity(r *http.Request) string {
	if keyID, ok := GetAPIKeyID(r.Context()); ok {
		return "key:" + keyID.String()
	}
	if userID, ok := GetUserID(r.Context()); ok {
		return "user:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
