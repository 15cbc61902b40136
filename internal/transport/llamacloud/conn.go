package llamacloud

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/overlordausritter/thematicbeast/internal/domain"
)

// deadlineConn applies a fresh read or write deadline on every I/O call, so
// the timeouts bound inactivity rather than the whole exchange.
type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err //nolint:wrapcheck // net.Conn contract
		}
	}
	return c.Conn.Read(b) //nolint:wrapcheck // net.Conn contract
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	now := time.Now()
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(now.Add(c.write)); err != nil {
			return 0, err //nolint:wrapcheck // net.Conn contract
		}
	}
	// A pooled connection may have been parked in Read long before this
	// request; restart the read window from the moment the request goes out.
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(now.Add(c.read)); err != nil {
			return 0, err //nolint:wrapcheck // net.Conn contract
		}
	}
	return c.Conn.Write(b) //nolint:wrapcheck // net.Conn contract
}

// newTransport builds the shared HTTP transport with connect/read/write timeouts.
func newTransport(t Timeouts, maxConns int) *http.Transport {
	dialer := &net.Dialer{Timeout: t.Connect, KeepAlive: 30 * time.Second}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err //nolint:wrapcheck // classified by caller
			}
			return &deadlineConn{Conn: conn, read: t.Read, write: t.Write}, nil
		},
		TLSHandshakeTimeout: t.Connect,
		MaxConnsPerHost:     maxConns,
		MaxIdleConnsPerHost: maxConns,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// connPool bounds concurrent outbound calls; waiting for a slot longer than
// timeout fails with domain.ErrPoolTimeout.
type connPool struct {
	slots   chan struct{}
	timeout time.Duration
}

func newConnPool(size int, timeout time.Duration) *connPool {
	if size <= 0 {
		size = 1
	}
	return &connPool{slots: make(chan struct{}, size), timeout: timeout}
}

func (p *connPool) acquire(ctx context.Context) (release func(), err error) {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case p.slots <- struct{}{}:
		return func() { <-p.slots }, nil
	case <-timer.C:
		return nil, domain.ErrPoolTimeout
	case <-ctx.Done():
		return nil, ctx.Err() //nolint:wrapcheck // caller wraps
	}
}
