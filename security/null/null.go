// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package null provides the ZMTP NULL security mechanism: no
// authentication and no encryption, only the READY metadata exchange.
package null

import (
	"io"

	"github.com/go-zeromq/datalink/zmtp"
	"github.com/pkg/errors"
)

type security struct{}

// Security returns the NULL security mechanism.
func Security() zmtp.Security {
	return security{}
}

func (security) Type() zmtp.SecurityType {
	return zmtp.NullSecurity
}

// Handshake sends the local READY command and reads the peer's one.
// Both sides send first, the role of the peer does not matter.
// see:
//
//	https://rfc.zeromq.org/spec:23/ZMTP/#the-null-security-mechanism
func (security) Handshake(conn *zmtp.Conn, _ bool) error {
	if err := sendReady(conn); err != nil {
		return err
	}
	return recvReady(conn)
}

func sendReady(conn *zmtp.Conn) error {
	raw, err := conn.Meta.MarshalZMTP()
	if err != nil {
		return errors.Wrap(err, "security/null: could not marshal metadata")
	}
	return errors.Wrap(conn.SendCmd(zmtp.CmdReady, raw), "security/null: could not send READY")
}

func recvReady(conn *zmtp.Conn) error {
	cmd, err := conn.RecvCmd()
	if err != nil {
		return errors.Wrap(err, "security/null: could not receive READY")
	}

	switch cmd.Name {
	case zmtp.CmdReady:
		err = conn.Peer.Meta.UnmarshalZMTP(cmd.Body)
		return errors.Wrap(err, "security/null: invalid peer metadata")
	case zmtp.CmdError:
		return errors.Errorf("security/null: peer rejected handshake: %q", cmd.Body)
	default:
		return errors.Wrapf(zmtp.ErrBadCmd, "security/null: got %q instead of READY", cmd.Name)
	}
}

// Encrypt copies data to w unchanged.
func (security) Encrypt(w io.Writer, data []byte) (int, error) { return w.Write(data) }

// Decrypt copies data to w unchanged.
func (security) Decrypt(w io.Writer, data []byte) (int, error) { return w.Write(data) }

var _ zmtp.Security = security{}
