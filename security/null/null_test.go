// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package null_test

import (
	"bytes"
	"testing"

	"github.com/go-zeromq/datalink/internal/inproc"
	"github.com/go-zeromq/datalink/security/null"
	"github.com/go-zeromq/datalink/zmtp"
	"golang.org/x/sync/errgroup"
)

func TestNullSecurity(t *testing.T) {
	sec := null.Security()
	if got, want := sec.Type(), zmtp.NullSecurity; got != want {
		t.Fatalf("got=%v, want=%v", got, want)
	}

	data := []byte("hello world")
	wenc := new(bytes.Buffer)
	if _, err := sec.Encrypt(wenc, data); err != nil {
		t.Fatalf("error encrypting data: %v", err)
	}

	if !bytes.Equal(wenc.Bytes(), data) {
		t.Fatalf("error encrypted data.\ngot = %q\nwant= %q\n", wenc.Bytes(), data)
	}

	wdec := new(bytes.Buffer)
	if _, err := sec.Decrypt(wdec, wenc.Bytes()); err != nil {
		t.Fatalf("error decrypting data: %v", err)
	}

	if !bytes.Equal(wdec.Bytes(), data) {
		t.Fatalf("error decrypted data.\ngot = %q\nwant= %q\n", wdec.Bytes(), data)
	}
}

func TestNullHandshake(t *testing.T) {
	c1, c2 := inproc.Pipe("null-handshake")

	var (
		grp errgroup.Group
		rep *zmtp.Conn
		req *zmtp.Conn
	)
	grp.Go(func() error {
		var err error
		rep, err = zmtp.Open(c1, null.Security(), zmtp.Rep, zmtp.SocketIdentity("server"), false)
		return err
	})
	grp.Go(func() error {
		var err error
		req, err = zmtp.Open(c2, null.Security(), zmtp.Req, zmtp.SocketIdentity("client"), false)
		return err
	})
	if err := grp.Wait(); err != nil {
		t.Fatalf("could not perform handshake: %+v", err)
	}
	defer rep.Close()
	defer req.Close()

	if got, want := rep.PeerType(), zmtp.Req; got != want {
		t.Fatalf("invalid peer type: got=%q, want=%q", got, want)
	}
	if got, want := req.PeerIdentity(), "server"; got != want {
		t.Fatalf("invalid peer identity: got=%q, want=%q", got, want)
	}
}
