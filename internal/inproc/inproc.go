// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inproc provides tools to implement an in-process asynchronous pipe of net.Conns.
package inproc

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	mgr = registry{db: make(map[string]*Listener)}

	ErrClosed      = errors.New("inproc: listener closed")
	ErrConnRefused = errors.New("inproc: connection refused")
)

type registry struct {
	mu sync.Mutex
	db map[string]*Listener
}

// backlog is the number of dialed connections waiting to be accepted.
const backlog = 16

// A Listener is an in-process listener for stream-oriented protocols.
// Listener implements net.Listener.
//
// Multiple goroutines may invoke methods on a Listener simultaneously.
type Listener struct {
	addr  Addr
	conns chan net.Conn

	once sync.Once
	done chan struct{}
}

// Listen announces on the given address.
func Listen(addr string) (*Listener, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if _, dup := mgr.db[addr]; dup {
		return nil, errors.Errorf("inproc: address %q already in use", addr)
	}

	l := &Listener{
		addr:  Addr(addr),
		conns: make(chan net.Conn, backlog),
		done:  make(chan struct{}),
	}
	mgr.db[addr] = l
	return l, nil
}

// Addr returns the listener's network address.
func (l *Listener) Addr() net.Addr {
	return l.addr
}

// Close closes the listener.
// Any blocked Accept operations will be unblocked and return errors.
// Connections dialed but not yet accepted are closed.
func (l *Listener) Close() error {
	l.once.Do(func() {
		mgr.mu.Lock()
		if mgr.db[string(l.addr)] == l {
			delete(mgr.db, string(l.addr))
		}
		mgr.mu.Unlock()
		close(l.done)

		for {
			select {
			case c := <-l.conns:
				_ = c.Close()
			default:
				return
			}
		}
	})
	return nil
}

// Accept waits for and returns the next connection to the listener.
func (l *Listener) Accept() (net.Conn, error) {
	select {
	case <-l.done:
		return nil, ErrClosed
	case c := <-l.conns:
		return c, nil
	}
}

// Dial connects to the given address.
func Dial(addr string) (net.Conn, error) {
	return DialContext(context.Background(), addr)
}

// DialContext connects to the given address using the provided context.
// DialContext fails with ErrConnRefused if nobody listens on addr.
func DialContext(ctx context.Context, addr string) (net.Conn, error) {
	mgr.mu.Lock()
	l, ok := mgr.db[addr]
	mgr.mu.Unlock()
	if !ok {
		return nil, ErrConnRefused
	}

	local, remote := Pipe(Addr(addr))
	select {
	case l.conns <- remote:
		return local, nil
	case <-l.done:
		return nil, ErrConnRefused
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Addr represents an in-process "network" end-point address.
type Addr string

// String implements net.Addr.String
func (a Addr) String() string {
	return strings.TrimPrefix(string(a), "inproc://")
}

// Network returns the name of the network.
func (a Addr) Network() string {
	return "inproc"
}

var (
	_ net.Addr     = (*Addr)(nil)
	_ net.Listener = (*Listener)(nil)
)
