// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datalink

import (
	"time"

	"github.com/go-zeromq/datalink/zmtp"
	"github.com/sirupsen/logrus"
)

// Option configures a socket at creation.
type Option func(sck *socket)

// WithID sets the identity announced to peers in the READY metadata.
// A random UUID is used by default.
func WithID(id zmtp.SocketIdentity) Option {
	return func(sck *socket) { sck.id = id }
}

// WithSecurity sets the security mechanism. A nil mechanism selects NULL.
func WithSecurity(sec zmtp.Security) Option {
	return func(sck *socket) { sck.sec = sec }
}

// WithDialerRetry sets the delay between two dial attempts.
// Non-positive values keep the default.
func WithDialerRetry(retry time.Duration) Option {
	return func(sck *socket) {
		if retry > 0 {
			sck.retry = retry
		}
	}
}

// WithDialerTimeout bounds the duration of a single dial attempt.
func WithDialerTimeout(timeout time.Duration) Option {
	return func(sck *socket) { sck.dialer.Timeout = timeout }
}

// WithDialerMaxRetries sets how many times a failed dial is retried
// in the background. Zero disables retries, so that Dial reports the
// failure. -1, the default, retries until the socket is closed.
func WithDialerMaxRetries(n int) Option {
	return func(sck *socket) {
		if n < -1 {
			n = -1
		}
		sck.maxRetries = n
	}
}

// WithAutomaticReconnect redials an end-point whose connection was lost.
// Otherwise the loss is final and the next Send fails with
// ErrConnectionUnavailable.
func WithAutomaticReconnect(reconnect bool) Option {
	return func(sck *socket) { sck.autoReconnect = reconnect }
}

// WithTimeout bounds how long Send waits for a connection and Recv waits
// for a message. Zero, the default, waits forever.
func WithTimeout(timeout time.Duration) Option {
	return func(sck *socket) {
		if timeout < 0 {
			timeout = 0
		}
		sck.timeout = timeout
	}
}

// WithMaxMsgSize bounds the size of the messages accepted from peers.
// A peer sending a larger message is disconnected.
// Non-positive values keep zmtp.DefaultMaxMsgSize.
func WithMaxMsgSize(n int64) Option {
	return func(sck *socket) {
		if n > 0 {
			sck.maxMsg = n
		}
	}
}

// WithLogger sets the logger of the socket. The socket adds its type and
// identity as fields.
func WithLogger(log *logrus.Entry) Option {
	return func(sck *socket) { sck.log = log }
}
