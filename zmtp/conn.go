// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// HandshakeTimeout bounds the greeting and security handshake when the
// underlying connection supports deadlines.
var HandshakeTimeout = 10 * time.Second

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Conn implements the ZeroMQ Message Transport Protocol as defined
// in https://rfc.zeromq.org/spec:23/ZMTP/.
//
// Writes are serialized, so a Conn may be written to by one goroutine
// while another one reads from it.
type Conn struct {
	typ SocketType
	id  SocketIdentity
	rw  io.ReadWriteCloser
	sec Security

	Server bool     // whether this end acts as a security server
	Meta   Metadata // metadata sent to the peer
	Peer   struct {
		Server bool
		Meta   Metadata
	}

	maxMsg int64 // largest accepted message, in bytes

	wmu sync.Mutex

	once sync.Once
	done chan struct{}
	err  error
}

// ConnOption configures a Conn before its handshake.
type ConnOption func(c *Conn)

// WithMaxMsgSize bounds the size of the messages, commands included,
// accepted from the peer. Larger messages break the connection.
// Non-positive values keep DefaultMaxMsgSize.
func WithMaxMsgSize(n int64) ConnOption {
	return func(c *Conn) {
		if n > 0 {
			c.maxMsg = n
		}
	}
}

// Open opens a ZMTP connection over rw with the given security, socket type and identity.
// Open performs a complete ZMTP handshake.
// rw is closed if the handshake fails.
func Open(rw io.ReadWriteCloser, sec Security, sockType SocketType, sockID SocketIdentity, server bool, opts ...ConnOption) (*Conn, error) {
	if rw == nil {
		return nil, errors.Errorf("zmtp: invalid nil read-writer")
	}

	if sec == nil {
		return nil, errors.Errorf("zmtp: invalid nil security")
	}

	conn := &Conn{
		typ:    sockType,
		id:     sockID,
		rw:     rw,
		sec:    sec,
		Server: server,
		Meta:   make(Metadata),
		maxMsg: DefaultMaxMsgSize,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(conn)
	}
	conn.Meta.Set(sysSockType, string(sockType))
	conn.Meta.Set(sysSockID, sockID.String())
	conn.Peer.Meta = make(Metadata)

	if dl, ok := rw.(deadliner); ok && HandshakeTimeout > 0 {
		_ = dl.SetDeadline(time.Now().Add(HandshakeTimeout))
		defer dl.SetDeadline(time.Time{})
	}

	err := conn.init()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "zmtp: could not initialize ZMTP connection")
	}

	return conn, nil
}

// init performs a ZMTP handshake over an io.ReadWriter
func (conn *Conn) init() error {
	err := conn.greet()
	if err != nil {
		return errors.Wrapf(err, "zmtp: could not exchange greetings")
	}

	err = conn.sec.Handshake(conn, conn.Server)
	if err != nil {
		return errors.Wrapf(err, "zmtp: could not perform security handshake")
	}

	peer, ok := conn.Peer.Meta.Get(sysSockType)
	if !ok {
		return errors.Wrap(ErrIncompatible, "zmtp: peer did not advertise its socket type")
	}
	if !SocketType(peer).IsCompatible(conn.typ) {
		return errors.Wrapf(ErrIncompatible, "zmtp: peer=%q not compatible with %q", peer, conn.typ)
	}

	return nil
}

func (conn *Conn) greet() error {
	send, err := newGreeting(conn.sec.Type(), conn.Server)
	if err != nil {
		return err
	}

	err = send.write(conn.rw)
	if err != nil {
		return errors.Wrapf(err, "zmtp: could not send greeting")
	}

	var recv greeting
	err = recv.read(conn.rw)
	if err != nil {
		return errors.Wrapf(err, "zmtp: could not recv greeting")
	}

	if recv.mechanism() != conn.sec.Type() {
		return errBadSec
	}
	conn.Peer.Server = recv.Server

	return nil
}

// Type returns the local socket type.
func (c *Conn) Type() SocketType { return c.typ }

// PeerType returns the socket type advertised by the peer.
func (c *Conn) PeerType() SocketType {
	v, _ := c.Peer.Meta.Get(sysSockType)
	return SocketType(v)
}

// PeerIdentity returns the identity advertised by the peer, if any.
func (c *Conn) PeerIdentity() string {
	v, _ := c.Peer.Meta.Get(sysSockID)
	return v
}

// SendCmd sends a ZMTP command over the wire.
func (c *Conn) SendCmd(name string, body []byte) error {
	cmd := Cmd{Name: name, Body: body}
	buf, err := cmd.marshalZMTP()
	if err != nil {
		return err
	}
	return c.send(true, [][]byte{buf})
}

// SendMsg sends a ZMTP message over the wire.
func (c *Conn) SendMsg(msg Msg) error {
	if len(msg.Frames) == 0 {
		return errors.Wrap(ErrBadFrame, "zmtp: message without frames")
	}
	return c.send(false, msg.Frames)
}

func (c *Conn) send(isCommand bool, frames [][]byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	nframes := len(frames)
	for i, frame := range frames {
		body := frame
		if !transparent(c.sec) {
			buf := new(bytes.Buffer)
			if _, err := c.sec.Encrypt(buf, frame); err != nil {
				return errors.Wrapf(err, "zmtp: could not encrypt frame %d/%d", i+1, nframes)
			}
			body = buf.Bytes()
		}

		out := frameHeader(isCommand, i < nframes-1, len(body))
		out = append(out, body...)
		if _, err := c.rw.Write(out); err != nil {
			c.abort(err)
			return errors.Wrapf(err, "zmtp: error sending frame %d/%d", i+1, nframes)
		}
	}
	return nil
}

// RecvMsg receives the next user message from the wire.
// PING commands are answered transparently, other housekeeping
// commands are consumed. An ERROR command from the peer ends the
// connection.
func (c *Conn) RecvMsg() (Msg, error) {
	for {
		msg, err := c.read()
		if err != nil {
			c.abort(err)
			return msg, err
		}

		if !msg.IsCmd() {
			return msg, nil
		}

		cmd, err := asCmd(msg)
		if err != nil {
			c.abort(err)
			return Msg{}, err
		}

		switch cmd.Name {
		case CmdPing:
			// PING carries a 2-byte TTL followed by the context to echo back.
			var pctx []byte
			if len(cmd.Body) > 2 {
				pctx = cmd.Body[2:]
			}
			if err := c.SendCmd(CmdPong, pctx); err != nil {
				return Msg{}, err
			}
		case CmdError:
			err := errors.Errorf("zmtp: peer reported an error: %s", errorReason(cmd.Body))
			c.abort(err)
			return Msg{}, err
		}
	}
}

// RecvCmd receives a ZMTP command from the wire.
func (c *Conn) RecvCmd() (Cmd, error) {
	msg, err := c.read()
	if err != nil {
		return Cmd{}, err
	}

	if !msg.IsCmd() {
		return Cmd{}, ErrBadFrame
	}

	return asCmd(msg)
}

func asCmd(msg Msg) (Cmd, error) {
	var cmd Cmd
	switch len(msg.Frames) {
	case 0:
		return cmd, errors.Errorf("zmtp: empty command")
	case 1:
		// ok
	default:
		return cmd, errors.Errorf("zmtp: invalid length command")
	}

	err := cmd.unmarshalZMTP(msg.Frames[0])
	return cmd, err
}

func errorReason(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	n := int(body[0])
	if n > len(body)-1 {
		n = len(body) - 1
	}
	return string(body[1 : 1+n])
}

// read reads a complete message, command or user data, from the wire.
// The frames of a multipart message share the size limit.
func (c *Conn) read() (Msg, error) {
	var msg Msg
	left := c.maxMsg
	for {
		fl, body, err := readFrame(c.rw, left)
		if err != nil {
			return msg, err
		}
		left -= int64(len(body))

		if fl.isCommand() {
			msg.Type = CmdMsg
		}

		if !transparent(c.sec) {
			buf := new(bytes.Buffer)
			if _, err := c.sec.Decrypt(buf, body); err != nil {
				return msg, err
			}
			body = buf.Bytes()
		}
		msg.Frames = append(msg.Frames, body)

		if !fl.hasMore() {
			return msg, nil
		}
	}
}

// Done returns a channel that is closed once the connection is closed
// or broken.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that broke the connection, if any.
// Err returns nil while the connection is alive or when it was closed
// with Close.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close closes the connection.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		err = c.rw.Close()
		close(c.done)
	})
	return err
}

func (c *Conn) abort(cause error) {
	c.once.Do(func() {
		c.err = cause
		_ = c.rw.Close()
		close(c.done)
	})
}
