package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/http2"

	"gitlab.com/flatwatch/claw/internal/netutil"
	"gitlab.com/flatwatch/claw/metrics"
)

type keepAliveListener struct {
	net.Listener
	period time.Duration
}

type keepAliveSetter interface {
	SetKeepAlive(bool) error
	SetKeepAlivePeriod(time.Duration) error
}

func (ln *keepAliveListener) Accept() (net.Conn, error) {
	conn, err := ln.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if kc, ok := conn.(keepAliveSetter); ok {
		if ln.period < 0 {
			kc.SetKeepAlive(false)
		} else if ln.period > 0 {
			kc.SetKeepAlive(true)
			kc.SetKeepAlivePeriod(ln.period)
		}
	}

	return conn, nil
}

// createListeners binds every configured address. A bind failure closes
// the listeners already created and aborts startup.
func (a *theApp) createListeners() ([]net.Listener, error) {
	var listeners []net.Listener

	var limiter *netutil.Limiter
	if a.config.General.MaxConns > 0 {
		limiter = netutil.NewLimiterWithMetrics(
			a.config.General.MaxConns,
			metrics.LimitListenerMaxConns,
			metrics.LimitListenerConcurrentConns,
			metrics.LimitListenerWaitingConns,
		)
	}

	for _, addr := range a.config.Listeners.HTTP {
		l, err := a.listenWithLimits(addr, limiter, false)
		if err != nil {
			closeListeners(listeners)
			return nil, err
		}
		log.WithField("listener", addr).Debug("Set up HTTP listener")

		listeners = append(listeners, l)
	}

	for _, addr := range a.config.Listeners.ProxyV2 {
		l, err := a.listenWithLimits(addr, limiter, true)
		if err != nil {
			closeListeners(listeners)
			return nil, err
		}
		log.WithField("listener", addr).Debug("Set up PROXYv2 listener")

		listeners = append(listeners, l)
	}

	return listeners, nil
}

func (a *theApp) listenWithLimits(addr string, limiter *netutil.Limiter, isProxyV2 bool) (net.Listener, error) {
	l, err := listen(addr)
	if err != nil {
		return nil, err
	}

	if limiter != nil {
		l = netutil.SharedLimitListener(l, limiter)
	}

	l = &keepAliveListener{l, a.config.Server.ListenKeepAlive}

	if isProxyV2 {
		l = &proxyproto.Listener{
			Listener: l,
			Policy: func(upstream net.Addr) (proxyproto.Policy, error) {
				return proxyproto.REQUIRE, nil
			},
		}
	}

	return l, nil
}

func listen(addr string) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not bind %s: %w", addr, err)
	}

	return l, nil
}

func (a *theApp) newServer(baseCtx context.Context) (*http.Server, error) {
	server := &http.Server{
		Handler:           a.handler,
		ReadTimeout:       a.config.Server.ReadTimeout,
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeout,
		WriteTimeout:      a.config.Server.WriteTimeout,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	if a.config.General.HTTP2 {
		if err := http2.ConfigureServer(server, &http2.Server{}); err != nil {
			return nil, err
		}
	}

	return server, nil
}

func closeListeners(listeners []net.Listener) {
	for _, l := range listeners {
		l.Close()
	}
}
