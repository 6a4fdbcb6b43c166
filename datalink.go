// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package datalink implements the ZeroMQ REQ and REP sockets over ZMTP 3.0,
// wire-compatible with libzmq peers.
//
// A REQ socket strictly alternates between sending a request and receiving
// the matching reply; a REP socket strictly alternates between receiving a
// request and sending its reply. Calling an operation out of turn fails
// with ErrProtocolViolation.
//
// Dialing never requires the remote end to be up: a socket keeps retrying
// in the background and Send waits until a connection is established.
//
// For more informations, see http://zeromq.org.
package datalink

import (
	"context"
	"net"

	"github.com/go-zeromq/datalink/zmtp"
	"github.com/pkg/errors"
)

// Socket represents a ZeroMQ socket.
type Socket interface {
	// Close closes the open Socket
	Close() error

	// Send puts the message on the outbound send queue.
	// Send blocks until the message can be queued or the send deadline expires.
	Send(msg Msg) error

	// SendContext is like Send but honors the cancellation of ctx.
	SendContext(ctx context.Context, msg Msg) error

	// Recv receives a complete message.
	Recv() (Msg, error)

	// RecvContext is like Recv but honors the cancellation of ctx.
	RecvContext(ctx context.Context) (Msg, error)

	// Listen connects a local endpoint to the Socket.
	Listen(ep string) error

	// Dial connects a remote endpoint to the Socket.
	Dial(ep string) error

	// Type returns the type of this Socket (REQ, REP, ...)
	Type() zmtp.SocketType

	// Addr returns the listener's address.
	// Addr returns nil if the socket isn't a listener.
	Addr() net.Addr
}

// Msg is a ZMTP message, possibly composed of multiple frames.
type Msg = zmtp.Msg

func NewMsg(frame []byte) Msg              { return zmtp.NewMsg(frame) }
func NewMsgFrom(frames ...[]byte) Msg      { return zmtp.NewMsgFrom(frames...) }
func NewMsgString(frame string) Msg        { return zmtp.NewMsgString(frame) }
func NewMsgFromString(frames []string) Msg { return zmtp.NewMsgFromString(frames) }

var (
	errInvalidAddress = errors.New("datalink: invalid address")

	// ErrProtocolViolation is returned when a socket operation is called out
	// of turn, e.g. a second Send on a REQ socket before the reply was received.
	ErrProtocolViolation = errors.New("datalink: request/reply protocol violation")

	// ErrReplyTimeout is returned when no reply arrived within the socket timeout.
	ErrReplyTimeout = errors.New("datalink: reply timeout")

	// ErrConnectionUnavailable is returned when no connection to a peer
	// could be established or the connection carrying an exchange was lost.
	ErrConnectionUnavailable = errors.New("datalink: connection unavailable")

	// ErrClosed is returned by operations on a closed socket.
	ErrClosed = errors.New("datalink: socket closed")
)
