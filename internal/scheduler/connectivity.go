package scheduler

import (
	"context"
	"net"
	"time"
)

// Connectivity is the network precondition check
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ConnectivityFunc adapts a func to Connectivity
type ConnectivityFunc func(ctx context.Context) bool

func (f ConnectivityFunc) Online(ctx context.Context) bool { return f(ctx) }

// AlwaysOnline never blocks work
var AlwaysOnline Connectivity = ConnectivityFunc(func(context.Context) bool { return true })

// DialCheck reports online when a TCP connection to Address succeeds.
type DialCheck struct {
	Address string // host:port
	Timeout time.Duration
}

func (c DialCheck) Online(ctx context.Context) bool {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
