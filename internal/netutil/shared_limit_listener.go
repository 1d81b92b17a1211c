// Package netutil bounds the number of simultaneously open connections
// across all listeners of the daemon.
package netutil

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var errKeepaliveNotSupported = errors.New("keepalive not supported")

// Limiter is a shared pool of connection slots. Every listener draws
// from the same pool, so the cap holds across the plain HTTP and PROXY
// protocol sockets together.
type Limiter struct {
	slots           chan struct{}
	concurrentConns prometheus.Gauge
	waitingConns    prometheus.Gauge
}

// NewLimiterWithMetrics creates a Limiter for n simultaneous
// connections, reporting its occupancy on the given gauges.
func NewLimiterWithMetrics(n int, maxConns, concurrentConns, waitingConns prometheus.Gauge) *Limiter {
	maxConns.Set(float64(n))

	return &Limiter{
		slots:           make(chan struct{}, n),
		concurrentConns: concurrentConns,
		waitingConns:    waitingConns,
	}
}

// acquire obtains a slot, blocking while the pool is saturated. Returns
// false when done closes before a slot frees up.
func (lim *Limiter) acquire(done <-chan struct{}, addr string) bool {
	select {
	case lim.slots <- struct{}{}:
		lim.concurrentConns.Inc()
		return true
	case <-done:
		return false
	default:
	}

	log.WithField("listener", addr).Debug("connection pool saturated, waiting for a free slot")

	lim.waitingConns.Inc()
	defer lim.waitingConns.Dec()

	select {
	case lim.slots <- struct{}{}:
		lim.concurrentConns.Inc()
		return true
	case <-done:
		return false
	}
}

func (lim *Limiter) release() {
	<-lim.slots
	lim.concurrentConns.Dec()
}

// SharedLimitListener returns a Listener that accepts a connection only
// when the shared pool permits it. Modeled on golang.org/x/net/netutil's
// LimitListener.
func SharedLimitListener(listener net.Listener, limiter *Limiter) net.Listener {
	return &sharedLimitListener{
		Listener: listener,
		limiter:  limiter,
		done:     make(chan struct{}),
	}
}

type sharedLimitListener struct {
	net.Listener
	closeOnce sync.Once
	limiter   *Limiter
	done      chan struct{} // closed when Close is called
}

func (l *sharedLimitListener) Accept() (net.Conn, error) {
	acquired := l.limiter.acquire(l.done, l.Addr().String())

	// a closed listener does not block here, Accept returns an error
	// right away
	c, err := l.Listener.Accept()
	if err != nil {
		if acquired {
			l.limiter.release()
		}
		return nil, err
	}

	tcpConn, _ := c.(*net.TCPConn)

	return &sharedLimitConn{
		Conn:    c,
		tcpConn: tcpConn,
		release: l.limiter.release,
	}, nil
}

func (l *sharedLimitListener) Close() error {
	err := l.Listener.Close()
	l.closeOnce.Do(func() { close(l.done) })
	return err
}

// sharedLimitConn returns its pool slot on Close and passes TCP
// keepalive controls through to the underlying connection.
type sharedLimitConn struct {
	net.Conn
	tcpConn     *net.TCPConn
	releaseOnce sync.Once
	release     func()
}

func (c *sharedLimitConn) Close() error {
	err := c.Conn.Close()
	c.releaseOnce.Do(c.release)
	return err
}

func (c *sharedLimitConn) SetKeepAlive(enabled bool) error {
	if c.tcpConn == nil {
		return errKeepaliveNotSupported
	}

	return c.tcpConn.SetKeepAlive(enabled)
}

func (c *sharedLimitConn) SetKeepAlivePeriod(period time.Duration) error {
	if c.tcpConn == nil {
		return errKeepaliveNotSupported
	}

	return c.tcpConn.SetKeepAlivePeriod(period)
}
