// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"io"

	"github.com/pkg/errors"
)

// greeting is the fixed-size ZMTP greeting as per:
//
//	https://rfc.zeromq.org/spec:23/ZMTP/#the-greeting
type greeting struct {
	Version   [2]uint8
	Mechanism [mechanismLen]byte
	Server    bool
}

func newGreeting(mech SecurityType, server bool) (greeting, error) {
	g := greeting{Version: defaultVersion, Server: server}
	if err := mech.validate(); err != nil {
		return g, err
	}
	copy(g.Mechanism[:], mech)
	return g, nil
}

func (g greeting) mechanism() SecurityType {
	return SecurityType(asString(g.Mechanism[:]))
}

func (g greeting) marshal() []byte {
	buf := make([]byte, greetingLen)
	buf[0] = sigHeader
	// bytes 1-8 are padding
	buf[9] = sigFooter
	buf[10] = g.Version[0]
	buf[11] = g.Version[1]
	copy(buf[12:32], g.Mechanism[:])
	buf[32] = asByte(g.Server)
	// bytes 33-63 are filler
	return buf
}

func (g *greeting) unmarshal(data []byte) error {
	if len(data) < greetingLen {
		return io.ErrUnexpectedEOF
	}
	if data[0] != sigHeader {
		return errors.Wrap(errGreeting, "invalid ZMTP signature header")
	}
	if data[9] != sigFooter {
		return errors.Wrap(errGreeting, "invalid ZMTP signature footer")
	}

	g.Version = [2]uint8{data[10], data[11]}
	if !g.supported() {
		return errors.Wrapf(errGreeting,
			"invalid ZMTP version (got=%v, want=%v)", g.Version, defaultVersion,
		)
	}
	copy(g.Mechanism[:], data[12:32])

	var err error
	g.Server, err = asBool(data[32])
	if err != nil {
		return errors.Wrap(err, "zmtp: could not get peer server flag")
	}
	return nil
}

// supported reports whether the peer speaks ZMTP 3.0 or a later revision.
// Versions below 3.0 would need the downgrade dance of RFC 23 which
// we do not implement.
func (g greeting) supported() bool {
	switch {
	case g.Version[0] > majorVersion:
		return true
	case g.Version[0] == majorVersion:
		return g.Version[1] >= minorVersion
	default:
		return false
	}
}

func (g greeting) write(w io.Writer) error {
	_, err := w.Write(g.marshal())
	return err
}

func (g *greeting) read(r io.Reader) error {
	var data [greetingLen]byte
	if _, err := io.ReadFull(r, data[:]); err != nil {
		return errors.Wrap(err, "zmtp: could not read ZMTP greeting")
	}
	return g.unmarshal(data[:])
}
