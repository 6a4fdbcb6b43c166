// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"io"

	"github.com/pkg/errors"
)

// Security is a ZMTP security mechanism.
//
// Handshake runs after the greeting. It must exchange the READY commands
// carrying conn.Meta and fill conn.Peer.Meta.
// Mechanisms other than NULL transform every frame with Encrypt and Decrypt.
// see:
//
//	https://rfc.zeromq.org/spec:23/ZMTP/
//	https://rfc.zeromq.org/spec:24/ZMTP-PLAIN/
type Security interface {
	Type() SecurityType
	Handshake(conn *Conn, server bool) error
	Encrypt(w io.Writer, data []byte) (int, error)
	Decrypt(w io.Writer, data []byte) (int, error)
}

// SecurityType is the name of a security mechanism, as sent in the greeting.
type SecurityType string

// NullSecurity does no authentication nor encryption.
const NullSecurity SecurityType = "NULL"

// mechanismLen is the size of the mechanism field of the greeting.
const mechanismLen = 20

// validate checks t fits the greeting: 1 to 20 characters among
// uppercase letters, digits, '-', '_', '.' and '+'.
func (t SecurityType) validate() error {
	if len(t) == 0 || len(t) > mechanismLen {
		return errors.Wrapf(errSecMech, "%q", string(t))
	}
	for _, c := range []byte(t) {
		switch {
		case 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '-', c == '_', c == '.', c == '+':
		default:
			return errors.Wrapf(errSecMech, "%q", string(t))
		}
	}
	return nil
}

// transparent reports whether sec leaves frames untouched.
func transparent(sec Security) bool {
	return sec.Type() == NullSecurity
}
