// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
)

func TestGreeting(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mech   SecurityType
		server bool
	}{
		{name: "null-client", mech: NullSecurity},
		{name: "null-server", mech: NullSecurity, server: true},
		{name: "plain", mech: "PLAIN"},
		{name: "curve-server", mech: "CURVE", server: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g, err := newGreeting(tc.mech, tc.server)
			if err != nil {
				t.Fatalf("could not create greeting: %+v", err)
			}

			buf := new(bytes.Buffer)
			if err := g.write(buf); err != nil {
				t.Fatalf("could not write greeting: %+v", err)
			}

			raw := buf.Bytes()
			if got, want := len(raw), greetingLen; got != want {
				t.Fatalf("invalid greeting length: got=%d, want=%d", got, want)
			}
			if raw[0] != 0xFF || raw[9] != 0x7F {
				t.Fatalf("invalid greeting signature: % x", raw[:10])
			}
			if raw[10] != 3 || raw[11] != 0 {
				t.Fatalf("invalid greeting version: %d.%d", raw[10], raw[11])
			}
			if got, want := asString(raw[12:32]), string(tc.mech); got != want {
				t.Fatalf("invalid mechanism: got=%q, want=%q", got, want)
			}
			if got, want := raw[32], asByte(tc.server); got != want {
				t.Fatalf("invalid as-server: got=%d, want=%d", got, want)
			}
			if !bytes.Equal(raw[33:], make([]byte, 31)) {
				t.Fatalf("invalid filler: % x", raw[33:])
			}

			var recv greeting
			if err := recv.read(bytes.NewReader(raw)); err != nil {
				t.Fatalf("could not read greeting: %+v", err)
			}
			if recv != g {
				t.Fatalf("round trip failed:\ngot= %#v\nwant=%#v", recv, g)
			}
			if got, want := recv.mechanism(), tc.mech; got != want {
				t.Fatalf("invalid mechanism: got=%q, want=%q", got, want)
			}
		})
	}
}

func TestGreetingMechanism(t *testing.T) {
	for _, mech := range []SecurityType{"NULL", "PLAIN", "CURVE", "X-MECH_1.0+", "ABCDEFGHIJKLMNOPQRST"} {
		if _, err := newGreeting(mech, false); err != nil {
			t.Fatalf("valid mechanism %q: %+v", mech, err)
		}
	}

	for _, mech := range []SecurityType{"", "null", "NU LL", "ABCDEFGHIJKLMNOPQRSTU"} {
		if _, err := newGreeting(mech, false); !errors.Is(err, errSecMech) {
			t.Fatalf("invalid mechanism %q: got=%v, want=%v", mech, err, errSecMech)
		}
	}
}

func TestGreetingInvalid(t *testing.T) {
	valid := func() []byte {
		g, err := newGreeting(NullSecurity, false)
		if err != nil {
			t.Fatalf("could not create greeting: %+v", err)
		}
		return g.marshal()
	}

	for _, tc := range []struct {
		name   string
		modify func(p []byte) []byte
		err    error
	}{
		{
			name:   "short",
			modify: func(p []byte) []byte { return p[:10] },
			err:    io.ErrUnexpectedEOF,
		},
		{
			name:   "bad-header",
			modify: func(p []byte) []byte { p[0] = 0x00; return p },
			err:    errGreeting,
		},
		{
			name:   "bad-footer",
			modify: func(p []byte) []byte { p[9] = 0x00; return p },
			err:    errGreeting,
		},
		{
			name:   "zmtp-2.0",
			modify: func(p []byte) []byte { p[10] = 2; return p },
			err:    errGreeting,
		},
		{
			name:   "bad-server-flag",
			modify: func(p []byte) []byte { p[32] = 2; return p },
			err:    errBoolCnv,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var g greeting
			err := g.unmarshal(tc.modify(valid()))
			if !errors.Is(err, tc.err) {
				t.Fatalf("invalid error: got=%v, want=%v", err, tc.err)
			}
		})
	}
}

func TestGreetingNewerVersion(t *testing.T) {
	g, err := newGreeting(NullSecurity, false)
	if err != nil {
		t.Fatalf("could not create greeting: %+v", err)
	}
	for _, v := range [][2]uint8{{3, 1}, {4, 0}} {
		raw := g.marshal()
		raw[10], raw[11] = v[0], v[1]

		var recv greeting
		if err := recv.unmarshal(raw); err != nil {
			t.Fatalf("ZMTP %d.%d should be accepted: %+v", v[0], v[1], err)
		}
	}
}
