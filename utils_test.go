// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datalink

import (
	"testing"

	"github.com/pkg/errors"
)

func TestParseEndpoint(t *testing.T) {
	testCases := []struct {
		desc    string
		v       string
		network string
		addr    string
		err     error
	}{
		{
			desc:    "tcp wild",
			v:       "tcp://*:5000",
			network: "tcp",
			addr:    "0.0.0.0:5000",
		},
		{
			desc:    "tcp ipv4",
			v:       "tcp://127.0.0.1:6000",
			network: "tcp",
			addr:    "127.0.0.1:6000",
		},
		{
			desc:    "tcp ipv6",
			v:       "tcp://[::1]:7000",
			network: "tcp",
			addr:    "[::1]:7000",
		},
		{
			desc:    "tcp localhost",
			v:       "tcp://localhost:5555",
			network: "tcp",
			addr:    "localhost:5555",
		},
		{
			desc:    "ipc",
			v:       "ipc:///tmp/datalink.sock",
			network: "ipc",
			addr:    "/tmp/datalink.sock",
		},
		{
			desc:    "inproc",
			v:       "inproc://data-server",
			network: "inproc",
			addr:    "data-server",
		},
		{
			desc: "missing scheme",
			v:    "localhost:5555",
			err:  errInvalidAddress,
		},
		{
			desc: "missing address",
			v:    "tcp://",
			err:  errInvalidAddress,
		},
		{
			desc: "nested scheme",
			v:    "tcp://tcp://localhost:5555",
			err:  errInvalidAddress,
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			ep, err := parseEndpoint(tC.v)
			if tC.err != nil {
				if !errors.Is(err, tC.err) {
					t.Fatalf("unexpected error: got=%+v, want=%v", err, tC.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %+v", err)
			}
			if ep.name != tC.v {
				t.Fatalf("unexpected name: %v", ep.name)
			}
			if ep.network != tC.network {
				t.Fatalf("unexpected network: %v", ep.network)
			}
			if ep.addr != tC.addr {
				t.Fatalf("unexpected address: %v", ep.addr)
			}
		})
	}

	if _, err := parseEndpoint("udp://127.0.0.1:5555"); err == nil {
		t.Fatalf("expected an unknown transport error")
	}
}
