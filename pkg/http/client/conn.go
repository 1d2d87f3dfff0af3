package client

import (
	"context"
	"errors"
	"net"
	"time"
)

// ErrConnExpired is reported by a connection past its lifetime. The retry
// transport does not count it as an attempt.
var ErrConnExpired = errors.New("connection expired")

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// expiringDial wraps dial so that every connection it opens stops accepting
// I/O after lifetime. The transport then dials again, which re-resolves the
// gateway host. A non-positive lifetime returns dial unchanged.
func expiringDial(dial dialFunc, lifetime time.Duration, now func() time.Time) dialFunc {
	if lifetime <= 0 {
		return dial
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return &expiringConn{Conn: conn, deadline: now().Add(lifetime), now: now}, nil
	}
}

type expiringConn struct {
	net.Conn
	deadline time.Time
	now      func() time.Time
}

// expired closes the connection once it is past its deadline.
func (c *expiringConn) expired() bool {
	if c.now().Before(c.deadline) {
		return false
	}
	_ = c.Close() //nolint:errcheck // the connection is being discarded
	return true
}

func (c *expiringConn) Read(b []byte) (int, error) {
	if c.expired() {
		return 0, ErrConnExpired
	}
	return c.Conn.Read(b)
}

func (c *expiringConn) Write(b []byte) (int, error) {
	if c.expired() {
		return 0, ErrConnExpired
	}
	return c.Conn.Write(b)
}
