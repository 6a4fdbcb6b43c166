// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datalink

import (
	"context"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-zeromq/datalink/security/null"
	"github.com/go-zeromq/datalink/zmtp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultRetry      = 250 * time.Millisecond
	defaultMaxRetries = -1
	defaultDialTime   = 5 * time.Minute

	// firstDialTime bounds the connection attempt made by Dial itself,
	// further attempts run in the background.
	firstDialTime = 1 * time.Second

	// inboundQueue is the number of received messages buffered
	// across all connections of a socket.
	inboundQueue = 64
)

// inbound is a message received from one of the socket connections.
type inbound struct {
	conn *zmtp.Conn
	msg  Msg
}

// socket implements the connection management shared by REQ and REP sockets.
type socket struct {
	typ zmtp.SocketType
	id  zmtp.SocketIdentity
	sec zmtp.Security
	log *logrus.Entry

	retry         time.Duration
	maxRetries    int
	autoReconnect bool
	timeout       time.Duration
	maxMsg        int64

	ctx    context.Context // life-line of socket
	cancel context.CancelFunc
	dialer net.Dialer
	wg     sync.WaitGroup
	once   sync.Once

	mu       sync.Mutex
	closed   bool
	conns    []*zmtp.Conn // ZMTP connections
	next     int          // round-robin cursor into conns
	listener net.Listener
	dialing  int           // dial attempts in flight
	dialErr  error         // why the last dial or connection failed
	notify   chan struct{} // closed whenever the fields above change

	in chan inbound
}

func newDefaultSocket(ctx context.Context, sockType zmtp.SocketType) *socket {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &socket{
		typ:        sockType,
		sec:        null.Security(),
		retry:      defaultRetry,
		maxRetries: defaultMaxRetries,
		maxMsg:     zmtp.DefaultMaxMsgSize,
		ctx:        ctx,
		cancel:     cancel,
		dialer:     net.Dialer{Timeout: defaultDialTime},
		notify:     make(chan struct{}),
		in:         make(chan inbound, inboundQueue),
	}
}

func newSocket(ctx context.Context, sockType zmtp.SocketType, opts ...Option) *socket {
	sck := newDefaultSocket(ctx, sockType)
	for _, opt := range opts {
		opt(sck)
	}
	if len(sck.id) == 0 {
		sck.id = zmtp.SocketIdentity(newUUID())
	}
	if sck.sec == nil {
		sck.sec = null.Security()
	}
	if sck.log == nil {
		sck.log = logrus.WithField("process", "datalink")
	}
	sck.log = sck.log.WithFields(logrus.Fields{
		"socket": string(sck.typ),
		"id":     sck.id.String(),
	})

	return sck
}

// Close closes the open Socket.
// Close cancels the socket life-line, closes the listener and all
// connections and waits for the socket goroutines to return.
func (sck *socket) Close() error {
	var err error
	sck.once.Do(func() {
		sck.cancel()

		sck.mu.Lock()
		sck.closed = true
		conns := sck.conns
		sck.conns = nil
		l := sck.listener
		sck.broadcastLocked()
		sck.mu.Unlock()

		if l != nil {
			err = l.Close()
		}
		for _, c := range conns {
			if e := c.Close(); e != nil && err == nil {
				err = e
			}
		}
		sck.wg.Wait()

		// Remove the unix socket file if it outlived the listener.
		if l != nil && l.Addr().Network() == "unix" {
			_ = os.Remove(l.Addr().String())
		}
	})
	return err
}

// Listen connects a local endpoint to the Socket.
func (sck *socket) Listen(ep string) error {
	lep, err := parseEndpoint(ep)
	if err != nil {
		return err
	}

	l, err := lep.trans.Listen(sck.ctx, lep.addr)
	if err != nil {
		return errors.Wrapf(err, "datalink: could not listen to %q", ep)
	}

	sck.mu.Lock()
	defer sck.mu.Unlock()
	switch {
	case sck.closed:
		_ = l.Close()
		return ErrClosed
	case sck.listener != nil:
		_ = l.Close()
		return errors.Errorf("datalink: socket already listens on %q", sck.listener.Addr())
	}
	sck.listener = l
	sck.wg.Add(1)
	go sck.accept(l)
	sck.broadcastLocked()

	sck.log.WithField("endpoint", ep).Debug("listening")
	return nil
}

func (sck *socket) accept(l net.Listener) {
	defer sck.wg.Done()
	for {
		conn, err := l.Accept()
		if err != nil {
			if sck.ctx.Err() != nil {
				return
			}
			sck.log.WithError(err).Warn("could not accept connection")
			select {
			case <-sck.ctx.Done():
				return
			case <-time.After(sck.retry):
				continue
			}
		}

		sck.mu.Lock()
		if sck.closed {
			sck.mu.Unlock()
			_ = conn.Close()
			return
		}
		sck.wg.Add(1)
		sck.mu.Unlock()

		go func() {
			defer sck.wg.Done()
			zconn, err := sck.open(sck.ctx, conn, true)
			if err != nil {
				sck.log.WithError(err).Warn("could not open a ZMTP connection")
				return
			}
			sck.addConn(zconn, nil)
		}()
	}
}

// Dial connects a remote endpoint to the Socket.
//
// Dial makes one connection attempt, bounded by the socket timeout when
// it is shorter than a second. When the remote end is not reachable
// in time, Dial returns nil and keeps trying in the background, every
// retry period, at most maxRetries times. A failed ZMTP handshake, such
// as with an incompatible peer, is reported right away.
func (sck *socket) Dial(ep string) error {
	dst, err := parseEndpoint(ep)
	if err != nil {
		return err
	}

	sck.mu.Lock()
	if sck.closed {
		sck.mu.Unlock()
		return ErrClosed
	}
	sck.dialing++
	sck.mu.Unlock()

	ctx, cancel := context.WithTimeout(sck.ctx, sck.firstDialTimeout())
	zconn, err := sck.connect(ctx, dst)
	cancel()
	switch {
	case err == nil:
		sck.addConn(zconn, dst)
		return nil
	case isHandshake(err):
		sck.dialFailed(dst, err)
		return err
	case sck.maxRetries == 0:
		sck.dialFailed(dst, err)
		return errors.Wrapf(ErrConnectionUnavailable, "datalink: could not dial %q: %v", ep, err)
	}

	sck.log.WithError(err).WithField("endpoint", ep).Debug("dial failed, retrying in background")
	if !sck.spawn(func() { sck.redial(dst) }) {
		sck.dialFailed(dst, ErrClosed)
	}
	return nil
}

// handshakeError reports a failed ZMTP handshake with a reachable peer.
// Those are not retried.
type handshakeError struct {
	ep  string
	err error
}

func (e *handshakeError) Error() string {
	return "datalink: could not open a ZMTP connection to " + strconv.Quote(e.ep) + ": " + e.err.Error()
}

func (e *handshakeError) Unwrap() error { return e.err }

func isHandshake(err error) bool {
	var herr *handshakeError
	return errors.As(err, &herr)
}

func (sck *socket) firstDialTimeout() time.Duration {
	if sck.timeout > 0 && sck.timeout < firstDialTime {
		return sck.timeout
	}
	return firstDialTime
}

// connect makes a single attempt at establishing a ZMTP connection to dst.
// A handshake cut short by the end of ctx is not a handshake failure.
func (sck *socket) connect(ctx context.Context, dst *endpoint) (*zmtp.Conn, error) {
	conn, err := dst.trans.Dial(ctx, &sck.dialer, dst.addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "datalink: could not dial %q", dst.name)
		}
		return nil, err
	}
	if conn == nil {
		return nil, errors.Errorf("datalink: got a nil dial-conn to %q", dst.name)
	}

	zconn, err := sck.open(ctx, conn, false)
	switch {
	case err == nil:
		return zconn, nil
	case ctx.Err() != nil:
		return nil, errors.Wrapf(ctx.Err(), "datalink: handshake with %q interrupted", dst.name)
	default:
		return nil, &handshakeError{ep: dst.name, err: err}
	}
}

// redial retries connecting to dst until it succeeds, the retries are
// exhausted or the socket is closed.
func (sck *socket) redial(dst *endpoint) {
	log := sck.log.WithField("endpoint", dst.name)
	timer := time.NewTimer(sck.retry)
	defer timer.Stop()

	for retries := 1; ; retries++ {
		select {
		case <-sck.ctx.Done():
			sck.dialFailed(dst, ErrClosed)
			return
		case <-timer.C:
		}

		zconn, err := sck.connect(sck.ctx, dst)
		switch {
		case err == nil:
			log.WithField("retries", retries).Debug("connected")
			sck.addConn(zconn, dst)
			return
		case isHandshake(err):
			log.WithError(err).Warn("could not connect")
			sck.dialFailed(dst, err)
			return
		case sck.maxRetries >= 0 && retries >= sck.maxRetries:
			log.WithError(err).Warn("giving up dialing")
			sck.dialFailed(dst, errors.Wrapf(err, "datalink: could not dial %q (retries=%d)", dst.name, retries))
			return
		}
		timer.Reset(sck.retry)
	}
}

// open performs the ZMTP handshake over conn. The handshake is aborted
// when ctx is done.
func (sck *socket) open(ctx context.Context, conn net.Conn, server bool) (*zmtp.Conn, error) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	zconn, err := zmtp.Open(conn, sck.sec, sck.typ, sck.id, server, zmtp.WithMaxMsgSize(sck.maxMsg))
	if !stop() && err == nil {
		// ctx ended right after the handshake and conn is being closed.
		_ = zconn.Close()
		return nil, ctx.Err()
	}
	return zconn, err
}

// spawn runs f in a goroutine tracked by the socket, unless the
// socket is closed.
func (sck *socket) spawn(f func()) bool {
	sck.mu.Lock()
	defer sck.mu.Unlock()
	return sck.spawnLocked(f)
}

func (sck *socket) spawnLocked(f func()) bool {
	if sck.closed {
		return false
	}
	sck.wg.Add(1)
	go func() {
		defer sck.wg.Done()
		f()
	}()
	return true
}

// addConn registers a ready ZMTP connection. dst is the end-point
// the connection was dialed to, nil for accepted connections.
func (sck *socket) addConn(c *zmtp.Conn, dst *endpoint) {
	sck.mu.Lock()
	defer sck.mu.Unlock()

	if dst != nil {
		sck.dialing--
	}
	if !sck.spawnLocked(func() { sck.serve(c, dst) }) {
		_ = c.Close()
		return
	}
	sck.conns = append(sck.conns, c)
	sck.dialErr = nil
	sck.broadcastLocked()

	sck.log.WithFields(logrus.Fields{
		"peer":      c.PeerIdentity(),
		"peer-type": string(c.PeerType()),
	}).Debug("connection ready")
}

func (sck *socket) dialFailed(dst *endpoint, err error) {
	sck.mu.Lock()
	defer sck.mu.Unlock()

	sck.dialing--
	if !errors.Is(err, ErrConnectionUnavailable) {
		err = errors.Wrapf(ErrConnectionUnavailable, "datalink: could not connect to %q: %v", dst.name, err)
	}
	sck.dialErr = err
	sck.broadcastLocked()
}

// serve reads messages from c and queues them on the inbound queue
// until the connection breaks.
func (sck *socket) serve(c *zmtp.Conn, dst *endpoint) {
	for {
		msg, err := c.RecvMsg()
		if err != nil {
			sck.lost(c, dst, err)
			return
		}
		select {
		case sck.in <- inbound{conn: c, msg: msg}:
		case <-sck.ctx.Done():
			return
		}
	}
}

// lost unregisters a broken connection. A dialed connection is dialed
// again when automatic reconnection is enabled.
func (sck *socket) lost(c *zmtp.Conn, dst *endpoint, err error) {
	_ = c.Close()

	sck.mu.Lock()
	defer sck.mu.Unlock()

	if sck.closed {
		return
	}
	sck.rmConnLocked(c)
	sck.log.WithError(err).WithField("peer", c.PeerIdentity()).Debug("connection lost")

	if dst != nil {
		switch {
		case sck.autoReconnect:
			sck.dialing++
			sck.spawnLocked(func() { sck.redial(dst) })
		default:
			sck.dialErr = errors.Wrapf(ErrConnectionUnavailable, "datalink: connection to %q lost", dst.name)
		}
	}
	sck.broadcastLocked()
}

func (sck *socket) rmConnLocked(c *zmtp.Conn) {
	for i := range sck.conns {
		if sck.conns[i] == c {
			sck.conns = append(sck.conns[:i], sck.conns[i+1:]...)
			return
		}
	}
}

func (sck *socket) broadcastLocked() {
	close(sck.notify)
	sck.notify = make(chan struct{})
}

// pick waits for a live connection and returns the next one in
// round-robin order.
func (sck *socket) pick(ctx context.Context) (*zmtp.Conn, error) {
	for {
		sck.mu.Lock()
		if sck.closed {
			sck.mu.Unlock()
			return nil, ErrClosed
		}

		n := len(sck.conns)
		for i := 0; i < n; i++ {
			c := sck.conns[(sck.next+i)%n]
			select {
			case <-c.Done():
				continue
			default:
			}
			sck.next = (sck.next + i + 1) % n
			sck.mu.Unlock()
			return c, nil
		}

		if n == 0 && sck.dialing == 0 && sck.listener == nil {
			err := sck.dialErr
			sck.mu.Unlock()
			if err == nil {
				err = errors.Wrap(ErrConnectionUnavailable, "datalink: socket is neither dialed nor listening")
			}
			return nil, err
		}
		notify := sck.notify
		sck.mu.Unlock()

		select {
		case <-notify:
		case <-ctx.Done():
			return nil, sck.ctxErr(ctx, errors.Wrap(ErrConnectionUnavailable, "datalink: no connection available"))
		}
	}
}

// opContext returns the context bounding a single Send or Recv.
// It is done when ctx is, when the socket is closed or when the
// socket timeout expires.
func (sck *socket) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	switch {
	case sck.timeout > 0:
		ctx, cancel = context.WithTimeout(ctx, sck.timeout)
	default:
		ctx, cancel = context.WithCancel(ctx)
	}
	stop := context.AfterFunc(sck.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// ctxErr translates the reason ctx is done into a socket error.
// A deadline is reported as timeout, if not nil.
func (sck *socket) ctxErr(ctx context.Context, timeout error) error {
	switch {
	case sck.ctx.Err() != nil:
		return ErrClosed
	case timeout != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		return timeout
	default:
		return ctx.Err()
	}
}

// Type returns the type of this Socket (REQ, REP, ...)
func (sck *socket) Type() zmtp.SocketType {
	return sck.typ
}

// Addr returns the listener's address.
// Addr returns nil if the socket isn't a listener.
func (sck *socket) Addr() net.Addr {
	sck.mu.Lock()
	defer sck.mu.Unlock()
	if sck.listener == nil {
		return nil
	}
	return sck.listener.Addr()
}
