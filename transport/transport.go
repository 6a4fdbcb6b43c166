// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package transport defines the pluggable byte-stream transports
// datalink sockets run ZMTP over.
package transport

import (
	"context"
	"net"
	"strings"
)

type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Transport is the datalink transport interface that wraps
// the Dial and Listen methods.
type Transport interface {
	// Dial connects to the address using the provided context.
	Dial(ctx context.Context, dialer Dialer, addr string) (net.Conn, error)

	// Listen announces on the provided network address.
	Listen(ctx context.Context, addr string) (net.Listener, error)

	// Addr returns the end-point address, stripped of its transport
	// prefix and resolved to what this transport understands.
	Addr(ep string) (addr string, err error)
}

type netTransport struct {
	prot string
}

// New returns a new net-based transport with the given network (e.g "tcp").
func New(network string) Transport {
	return netTransport{prot: network}
}

func (trans netTransport) Dial(ctx context.Context, dialer Dialer, addr string) (net.Conn, error) {
	return dialer.DialContext(ctx, trans.prot, addr)
}

func (trans netTransport) Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, trans.prot, addr)
}

// Addr resolves the ZeroMQ wildcard host "*" to all interfaces
// for TCP end-points.
func (trans netTransport) Addr(ep string) (addr string, err error) {
	switch trans.prot {
	case "tcp", "tcp4", "tcp6":
		if strings.HasPrefix(ep, "*:") {
			return "0.0.0.0" + ep[1:], nil
		}
	}
	return ep, nil
}
