package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
)

// PeerAddr records the TCP peer address before chi's RealIP rewrites
// r.RemoteAddr from proxy headers. It must run first in the chain.
func PeerAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerAddrKey, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPeerAddr returns the recorded TCP peer, or "" if PeerAddr did not run.
func GetPeerAddr(ctx context.Context) string {
	addr, _ := ctx.Value(peerAddrKey).(string)
	return addr
}

// IsLoopback reports whether addr, a host or host:port, is a loopback
// address. IPv4-mapped IPv6 addresses are unmapped first.
func IsLoopback(addr string) bool {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return ip.Unmap().IsLoopback()
}

// LoopbackOnly rejects callers whose TCP peer is not a loopback address
// with 403. Forwarding headers are never consulted.
func LoopbackOnly(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer := GetPeerAddr(r.Context())
			if peer == "" {
				peer = r.RemoteAddr
			}

			if !IsLoopback(peer) {
				logger.Warn("non-loopback caller rejected",
					slog.String("peer", peer),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeError(w, http.StatusForbidden, MsgForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
