// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inproc

import (
	"io"
	"net"
	"sync"
	"time"
)

// chunks is the number of pending writes a pipe end buffers before
// Write blocks.
const chunks = 64

// conn is one end of an in-process pipe.
// Writes are buffered so that both ends may write before reading,
// as required by the ZMTP greeting.
type conn struct {
	addr Addr
	r    <-chan []byte
	w    chan<- []byte

	rmu     sync.Mutex // guards pending
	pending []byte

	once       sync.Once // protects closing localDone
	localDone  chan struct{}
	remoteDone <-chan struct{}

	dmu       sync.Mutex // guards deadlines
	rdeadline time.Time
	wdeadline time.Time
}

// Pipe creates a synchronous, in-memory, full duplex network connection.
// Unlike net.Pipe, writes on one end are buffered and do not wait
// for the other end to read.
func Pipe(addr Addr) (net.Conn, net.Conn) {
	ch1 := make(chan []byte, chunks)
	ch2 := make(chan []byte, chunks)
	done1 := make(chan struct{})
	done2 := make(chan struct{})

	c1 := &conn{
		addr:       addr,
		r:          ch1,
		w:          ch2,
		localDone:  done1,
		remoteDone: done2,
	}
	c2 := &conn{
		addr:       addr,
		r:          ch2,
		w:          ch1,
		localDone:  done2,
		remoteDone: done1,
	}
	return c1, c2
}

func (c *conn) Write(data []byte) (int, error) {
	n, err := c.write(data)
	if err != nil && err != io.ErrClosedPipe {
		err = &net.OpError{Op: "write", Net: "inproc", Err: err}
	}
	return n, err
}

func (c *conn) write(data []byte) (int, error) {
	switch {
	case isClosedChan(c.localDone):
		return 0, io.ErrClosedPipe
	case isClosedChan(c.remoteDone):
		return 0, io.ErrClosedPipe
	}
	if len(data) == 0 {
		return 0, nil
	}

	expired, stop, err := c.timer(c.writeDeadline())
	if err != nil {
		return 0, err
	}
	defer stop()

	buf := make([]byte, len(data))
	copy(buf, data)

	select {
	case c.w <- buf:
		return len(data), nil
	case <-c.localDone:
		return 0, io.ErrClosedPipe
	case <-c.remoteDone:
		return 0, io.ErrClosedPipe
	case <-expired:
		return 0, timeoutError{}
	}
}

func (c *conn) Read(data []byte) (int, error) {
	n, err := c.read(data)
	if err != nil && err != io.EOF && err != io.ErrClosedPipe {
		err = &net.OpError{Op: "read", Net: "inproc", Err: err}
	}
	return n, err
}

func (c *conn) read(data []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	if isClosedChan(c.localDone) {
		return 0, io.ErrClosedPipe
	}

	if len(c.pending) == 0 {
		if err := c.fill(); err != nil {
			return 0, err
		}
	}

	n := copy(data, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// fill waits for the next chunk written by the remote end.
func (c *conn) fill() error {
	select {
	case c.pending = <-c.r:
		return nil
	default:
	}

	expired, stop, err := c.timer(c.readDeadline())
	if err != nil {
		return err
	}
	defer stop()

	select {
	case c.pending = <-c.r:
		return nil
	case <-c.localDone:
		return io.ErrClosedPipe
	case <-c.remoteDone:
		// deliver what the peer wrote before it went away.
		select {
		case c.pending = <-c.r:
			return nil
		default:
			return io.EOF
		}
	case <-expired:
		return timeoutError{}
	}
}

func (c *conn) LocalAddr() net.Addr  { return c.addr }
func (c *conn) RemoteAddr() net.Addr { return c.addr }

// SetDeadline sets the read and write deadlines.
// Deadlines apply to calls made after they are set.
func (c *conn) SetDeadline(t time.Time) error {
	if isClosedChan(c.localDone) {
		return io.ErrClosedPipe
	}
	c.dmu.Lock()
	c.rdeadline = t
	c.wdeadline = t
	c.dmu.Unlock()
	return nil
}

func (c *conn) SetReadDeadline(t time.Time) error {
	if isClosedChan(c.localDone) {
		return io.ErrClosedPipe
	}
	c.dmu.Lock()
	c.rdeadline = t
	c.dmu.Unlock()
	return nil
}

func (c *conn) SetWriteDeadline(t time.Time) error {
	if isClosedChan(c.localDone) {
		return io.ErrClosedPipe
	}
	c.dmu.Lock()
	c.wdeadline = t
	c.dmu.Unlock()
	return nil
}

func (c *conn) readDeadline() time.Time {
	c.dmu.Lock()
	defer c.dmu.Unlock()
	return c.rdeadline
}

func (c *conn) writeDeadline() time.Time {
	c.dmu.Lock()
	defer c.dmu.Unlock()
	return c.wdeadline
}

// timer returns a channel firing at deadline t.
// A zero t never fires.
func (c *conn) timer(t time.Time) (<-chan time.Time, func(), error) {
	if t.IsZero() {
		return nil, func() {}, nil
	}
	dur := time.Until(t)
	if dur <= 0 {
		return nil, nil, timeoutError{}
	}
	tmr := time.NewTimer(dur)
	return tmr.C, func() { tmr.Stop() }, nil
}

func (c *conn) Close() error {
	c.once.Do(func() {
		close(c.localDone)
	})
	return nil
}

func isClosedChan(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "deadline exceeded" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Conn = (*conn)(nil)
