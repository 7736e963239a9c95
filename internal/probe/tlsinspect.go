package probe

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"time"
)

// tlsDialTimeout is the hard upper bound on a certificate inspection.
const tlsDialTimeout = 10 * time.Second

// TLSExpiry opens a TLS handshake to host and reads the peer certificate's
// expiry. host may carry a scheme, path or port; scheme and path are
// stripped and the port defaults to 443. Certificate validation is disabled
// because this is a diagnostic probe, not a security check.
//
// All handshake and parse failures reduce to ok=false; the call never
// blocks past tlsDialTimeout.
func TLSExpiry(ctx context.Context, host string) (time.Time, bool) {
	addr := hostPort(host)
	if addr == "" {
		return time.Time{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, tlsDialTimeout)
	defer cancel()

	serverName, _, _ := net.SplitHostPort(addr)
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: tlsDialTimeout},
		Config: &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: true, //nolint:gosec // expiry probe, not a trust decision
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return time.Time{}, false
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return time.Time{}, false
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return time.Time{}, false
	}
	return certs[0].NotAfter, true
}

// hostPort normalizes a config URL into a dialable host:port.
func hostPort(host string) string {
	h := strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	if h == "" {
		return ""
	}
	if !strings.Contains(h, ":") {
		h += ":443"
	}
	return h
}
