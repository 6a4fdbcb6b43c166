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

type repState int

const (
	repReady repState = iota
	repReceiving
	repPending
	repSending
)

func (s repState) String() string {
	switch s {
	case repReady:
		return "ready"
	case repReceiving:
		return "receiving"
	case repPending:
		return "reply-pending"
	case repSending:
		return "sending"
	}
	return "unknown"
}

// NewRep returns a new REP ZeroMQ socket.
// The returned socket value is initially unbound.
func NewRep(ctx context.Context, opts ...Option) Socket {
	return &repSocket{sck: newSocket(ctx, zmtp.Rep, opts...)}
}

// repSocket is a REP ZeroMQ socket.
type repSocket struct {
	sck *socket

	mu    sync.Mutex
	state repState
	peer  *zmtp.Conn // connection the pending request came from
	env   [][]byte   // routing envelope of the pending request, delimiter included
}

// Close closes the open Socket
func (rep *repSocket) Close() error {
	return rep.sck.Close()
}

// Send sends the reply to the last received request.
func (rep *repSocket) Send(msg Msg) error {
	return rep.SendContext(context.Background(), msg)
}

// SendContext is like Send but honors the cancellation of ctx.
func (rep *repSocket) SendContext(ctx context.Context, msg Msg) error {
	if rep.sck.ctx.Err() != nil {
		return ErrClosed
	}
	if err := rep.enter(repPending, repSending, "send"); err != nil {
		return err
	}

	rep.mu.Lock()
	peer, env := rep.peer, rep.env
	rep.mu.Unlock()
	defer rep.reset()

	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	select {
	case <-peer.Done():
		return errors.Wrapf(ErrConnectionUnavailable, "datalink: requester %q went away", peer.PeerIdentity())
	default:
	}

	frames := make([][]byte, 0, len(env)+len(msg.Frames))
	frames = append(frames, env...)
	frames = append(frames, msg.Frames...)

	err := peer.SendMsg(zmtp.NewMsgFrom(frames...))
	if err != nil {
		return errors.Wrapf(ErrConnectionUnavailable, "datalink: could not send reply: %v", err)
	}
	return nil
}

// Recv receives the next request, from any connected requester.
func (rep *repSocket) Recv() (Msg, error) {
	return rep.RecvContext(context.Background())
}

// RecvContext is like Recv but honors the cancellation of ctx.
func (rep *repSocket) RecvContext(ctx context.Context) (Msg, error) {
	if rep.sck.ctx.Err() != nil {
		return Msg{}, ErrClosed
	}
	if err := rep.enter(repReady, repReceiving, "receive"); err != nil {
		return Msg{}, err
	}

	ctx, cancel := rep.sck.opContext(ctx)
	defer cancel()

	for {
		select {
		case in := <-rep.sck.in:
			env, body, ok := splitEnvelope(in.msg)
			if !ok {
				rep.sck.log.WithField("msg", in.msg).Debug("dropping request without delimiter")
				continue
			}
			rep.mu.Lock()
			rep.peer = in.conn
			rep.env = env
			rep.state = repPending
			rep.mu.Unlock()
			return body, nil

		case <-ctx.Done():
			rep.reset()
			return Msg{}, rep.sck.ctxErr(ctx, nil)
		}
	}
}

// splitEnvelope splits msg into its routing envelope, up to and including
// the first empty frame, and its body.
func splitEnvelope(msg Msg) (env [][]byte, body Msg, ok bool) {
	for i, frame := range msg.Frames {
		if len(frame) == 0 {
			return msg.Frames[:i+1], zmtp.NewMsgFrom(msg.Frames[i+1:]...), true
		}
	}
	return nil, Msg{}, false
}

func (rep *repSocket) enter(from, to repState, op string) error {
	rep.mu.Lock()
	defer rep.mu.Unlock()

	if rep.state != from {
		return errors.Wrapf(ErrProtocolViolation, "datalink: REP socket cannot %s in state %v", op, rep.state)
	}
	rep.state = to
	return nil
}

func (rep *repSocket) reset() {
	rep.mu.Lock()
	rep.state = repReady
	rep.peer = nil
	rep.env = nil
	rep.mu.Unlock()
}

// Listen connects a local endpoint to the Socket.
func (rep *repSocket) Listen(ep string) error {
	return rep.sck.Listen(ep)
}

// Dial connects a remote endpoint to the Socket.
func (rep *repSocket) Dial(ep string) error {
	return rep.sck.Dial(ep)
}

// Type returns the type of this Socket (REQ, REP, ...)
func (rep *repSocket) Type() zmtp.SocketType {
	return rep.sck.Type()
}

// Addr returns the listener's address.
// Addr returns nil if the socket isn't a listener.
func (rep *repSocket) Addr() net.Addr {
	return rep.sck.Addr()
}

var (
	_ Socket = (*repSocket)(nil)
)
