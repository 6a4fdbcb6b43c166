// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datalink

import (
	"context"
	"net"
	"sync"

	"github.com/go-zeromq/datalink/zmtp"
	"github.com/pkg/errors"
)

type reqState int

const (
	reqReady reqState = iota
	reqSending
	reqAwaiting
	reqReceiving
)

func (s reqState) String() string {
	switch s {
	case reqReady:
		return "ready"
	case reqSending:
		return "sending"
	case reqAwaiting:
		return "awaiting-reply"
	case reqReceiving:
		return "receiving"
	}
	return "unknown"
}

// NewReq returns a new REQ ZeroMQ socket.
// The returned socket value is initially unbound.
func NewReq(ctx context.Context, opts ...Option) Socket {
	return &reqSocket{sck: newSocket(ctx, zmtp.Req, opts...)}
}

// reqSocket is a REQ ZeroMQ socket.
type reqSocket struct {
	sck *socket

	mu    sync.Mutex
	state reqState
	peer  *zmtp.Conn // connection carrying the outstanding request
}

// Close closes the open Socket
func (req *reqSocket) Close() error {
	return req.sck.Close()
}

// Send sends a request and switches the socket to awaiting the reply.
func (req *reqSocket) Send(msg Msg) error {
	return req.SendContext(context.Background(), msg)
}

// SendContext is like Send but honors the cancellation of ctx.
func (req *reqSocket) SendContext(ctx context.Context, msg Msg) error {
	if req.sck.ctx.Err() != nil {
		return ErrClosed
	}
	if err := req.enter(reqReady, reqSending, "send"); err != nil {
		return err
	}

	ctx, cancel := req.sck.opContext(ctx)
	defer cancel()

	conn, err := req.sck.pick(ctx)
	if err != nil {
		req.reset(nil)
		return err
	}

	frames := make([][]byte, 0, len(msg.Frames)+1)
	frames = append(frames, nil) // empty delimiter
	frames = append(frames, msg.Frames...)

	err = conn.SendMsg(zmtp.NewMsgFrom(frames...))
	if err != nil {
		req.reset(conn)
		return errors.Wrapf(ErrConnectionUnavailable, "datalink: could not send request: %v", err)
	}

	req.mu.Lock()
	req.peer = conn
	req.state = reqAwaiting
	req.mu.Unlock()
	return nil
}

// Recv receives the reply to the outstanding request.
func (req *reqSocket) Recv() (Msg, error) {
	return req.RecvContext(context.Background())
}

// RecvContext is like Recv but honors the cancellation of ctx.
//
// Only a reply coming from the connection that carried the request is
// accepted. When the wait is abandoned, on timeout or cancellation, that
// connection is discarded so that a late reply cannot be mistaken for
// the reply to a later request.
func (req *reqSocket) RecvContext(ctx context.Context) (Msg, error) {
	if req.sck.ctx.Err() != nil {
		return Msg{}, ErrClosed
	}
	if err := req.enter(reqAwaiting, reqReceiving, "receive"); err != nil {
		return Msg{}, err
	}
	req.mu.Lock()
	peer := req.peer
	req.mu.Unlock()

	ctx, cancel := req.sck.opContext(ctx)
	defer cancel()

	for {
		select {
		case in := <-req.sck.in:
			if msg, ok := req.reply(in, peer); ok {
				req.reset(nil)
				return msg, nil
			}

		case <-peer.Done():
			// a reply received before the connection went down is still valid.
			if msg, ok := req.drain(peer); ok {
				req.reset(nil)
				return msg, nil
			}
			req.reset(nil)
			if req.sck.ctx.Err() != nil {
				return Msg{}, ErrClosed
			}
			cause := peer.Err()
			if cause == nil {
				cause = net.ErrClosed
			}
			return Msg{}, errors.Wrapf(ErrConnectionUnavailable, "datalink: peer %q went away before replying: %v", peer.PeerIdentity(), cause)

		case <-ctx.Done():
			req.reset(peer)
			return Msg{}, req.sck.ctxErr(ctx, ErrReplyTimeout)
		}
	}
}

// reply extracts the reply carried by in, if it answers the request
// sent over peer.
func (req *reqSocket) reply(in inbound, peer *zmtp.Conn) (Msg, bool) {
	if in.conn != peer {
		req.sck.log.WithField("peer", in.conn.PeerIdentity()).Debug("dropping stale reply")
		return Msg{}, false
	}
	if len(in.msg.Frames) == 0 || len(in.msg.Frames[0]) != 0 {
		req.sck.log.WithField("msg", in.msg).Debug("dropping reply without delimiter")
		return Msg{}, false
	}
	return zmtp.NewMsgFrom(in.msg.Frames[1:]...), true
}

func (req *reqSocket) drain(peer *zmtp.Conn) (Msg, bool) {
	for {
		select {
		case in := <-req.sck.in:
			if msg, ok := req.reply(in, peer); ok {
				return msg, true
			}
		default:
			return Msg{}, false
		}
	}
}

func (req *reqSocket) enter(from, to reqState, op string) error {
	req.mu.Lock()
	defer req.mu.Unlock()

	if req.state != from {
		return errors.Wrapf(ErrProtocolViolation, "datalink: REQ socket cannot %s in state %v", op, req.state)
	}
	req.state = to
	return nil
}

// reset puts the socket back in the ready state, discarding the
// connection drop if it is not nil.
func (req *reqSocket) reset(drop *zmtp.Conn) {
	req.mu.Lock()
	req.state = reqReady
	req.peer = nil
	req.mu.Unlock()

	if drop != nil {
		_ = drop.Close()
	}
}

// Listen connects a local endpoint to the Socket.
func (req *reqSocket) Listen(ep string) error {
	return req.sck.Listen(ep)
}

// Dial connects a remote endpoint to the Socket.
func (req *reqSocket) Dial(ep string) error {
	return req.sck.Dial(ep)
}

// Type returns the type of this Socket (REQ, REP, ...)
func (req *reqSocket) Type() zmtp.SocketType {
	return req.sck.Type()
}

// Addr returns the listener's address.
// Addr returns nil if the socket isn't a listener.
func (req *reqSocket) Addr() net.Addr {
	return req.sck.Addr()
}

var (
	_ Socket = (*reqSocket)(nil)
)
