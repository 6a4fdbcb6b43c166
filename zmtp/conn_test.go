// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zmtp_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-zeromq/datalink/internal/inproc"
	"github.com/go-zeromq/datalink/security/null"
	"github.com/go-zeromq/datalink/zmtp"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func openPair(t *testing.T, name string, t1, t2 zmtp.SocketType) (*zmtp.Conn, *zmtp.Conn) {
	t.Helper()
	return openPairWith(t, name, t1, t2)
}

// openPairWith is like openPair, opts configure the first connection.
func openPairWith(t *testing.T, name string, t1, t2 zmtp.SocketType, opts ...zmtp.ConnOption) (*zmtp.Conn, *zmtp.Conn) {
	t.Helper()

	c1, c2 := inproc.Pipe(inproc.Addr(name))

	var (
		grp errgroup.Group
		zc1 *zmtp.Conn
		zc2 *zmtp.Conn
	)
	grp.Go(func() error {
		var err error
		zc1, err = zmtp.Open(c1, null.Security(), t1, zmtp.SocketIdentity("c1"), true, opts...)
		return err
	})
	grp.Go(func() error {
		var err error
		zc2, err = zmtp.Open(c2, null.Security(), t2, zmtp.SocketIdentity("c2"), false)
		return err
	})
	if err := grp.Wait(); err != nil {
		t.Fatalf("could not open ZMTP connections: %+v", err)
	}
	return zc1, zc2
}

func TestConnMsg(t *testing.T) {
	rep, req := openPair(t, "conn-msg", zmtp.Rep, zmtp.Req)
	defer rep.Close()
	defer req.Close()

	if got, want := rep.Type(), zmtp.Rep; got != want {
		t.Fatalf("invalid type: got=%q, want=%q", got, want)
	}
	if got, want := rep.PeerType(), zmtp.Req; got != want {
		t.Fatalf("invalid peer type: got=%q, want=%q", got, want)
	}
	if got, want := rep.PeerIdentity(), "c2"; got != want {
		t.Fatalf("invalid peer identity: got=%q, want=%q", got, want)
	}
	if !req.Peer.Server || req.Server {
		t.Fatalf("invalid as-server flags: local=%v peer=%v", req.Server, req.Peer.Server)
	}

	for _, want := range []zmtp.Msg{
		zmtp.NewMsgString("hello"),
		zmtp.NewMsgFrom(nil, []byte("multi"), []byte("part")),
		zmtp.NewMsg([]byte(strings.Repeat("long", 100))),
	} {
		if err := req.SendMsg(want); err != nil {
			t.Fatalf("could not send %v: %+v", want, err)
		}
		got, err := rep.RecvMsg()
		if err != nil {
			t.Fatalf("could not recv %v: %+v", want, err)
		}
		if len(got.Frames) != len(want.Frames) {
			t.Fatalf("invalid number of frames: got=%d, want=%d", len(got.Frames), len(want.Frames))
		}
		for i := range want.Frames {
			if string(got.Frames[i]) != string(want.Frames[i]) {
				t.Fatalf("invalid frame %d: got=%q, want=%q", i, got.Frames[i], want.Frames[i])
			}
		}
	}

	if err := req.SendMsg(zmtp.Msg{}); !errors.Is(err, zmtp.ErrBadFrame) {
		t.Fatalf("empty message: got=%v, want=%v", err, zmtp.ErrBadFrame)
	}
}

func TestConnMaxMsgSize(t *testing.T) {
	rep, req := openPairWith(t, "conn-max-msg", zmtp.Rep, zmtp.Req, zmtp.WithMaxMsgSize(16))
	defer rep.Close()
	defer req.Close()

	want := strings.Repeat("x", 16)
	if err := req.SendMsg(zmtp.NewMsgString(want)); err != nil {
		t.Fatalf("could not send message: %+v", err)
	}
	msg, err := rep.RecvMsg()
	if err != nil {
		t.Fatalf("message at the limit should be accepted: %+v", err)
	}
	if got := string(msg.Bytes()); got != want {
		t.Fatalf("invalid message: got=%q, want=%q", got, want)
	}

	// the frames of a multipart message add up.
	go func() {
		_ = req.SendMsg(zmtp.NewMsgFromString([]string{"0123456789", "0123456789"}))
	}()
	if _, err := rep.RecvMsg(); err == nil || !strings.Contains(err.Error(), "overflow") {
		t.Fatalf("invalid error: got=%v, want an overflow", err)
	}

	select {
	case <-rep.Done():
	case <-time.After(time.Second):
		t.Fatalf("connection should be done")
	}
}

func TestConnPing(t *testing.T) {
	rep, req := openPair(t, "conn-ping", zmtp.Rep, zmtp.Req)
	defer rep.Close()
	defer req.Close()

	// TTL=10 (deciseconds), context="hi"
	if err := req.SendCmd(zmtp.CmdPing, []byte("\x00\x0ahi")); err != nil {
		t.Fatalf("could not send PING: %+v", err)
	}

	var grp errgroup.Group
	grp.Go(func() error {
		msg, err := rep.RecvMsg()
		if err != nil {
			return err
		}
		if got, want := string(msg.Bytes()), "after-ping"; got != want {
			return errors.Errorf("invalid message: got=%q, want=%q", got, want)
		}
		return nil
	})

	cmd, err := req.RecvCmd()
	if err != nil {
		t.Fatalf("could not recv PONG: %+v", err)
	}
	if cmd.Name != zmtp.CmdPong || !reflect.DeepEqual(cmd.Body, []byte("hi")) {
		t.Fatalf("invalid PONG: %#v", cmd)
	}

	if err := req.SendMsg(zmtp.NewMsgString("after-ping")); err != nil {
		t.Fatalf("could not send message: %+v", err)
	}
	if err := grp.Wait(); err != nil {
		t.Fatalf("error: %+v", err)
	}
}

func TestConnError(t *testing.T) {
	rep, req := openPair(t, "conn-error", zmtp.Rep, zmtp.Req)
	defer rep.Close()
	defer req.Close()

	if err := req.SendCmd(zmtp.CmdError, []byte("\x04boom")); err != nil {
		t.Fatalf("could not send ERROR: %+v", err)
	}

	_, err := rep.RecvMsg()
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("invalid error: %v", err)
	}

	select {
	case <-rep.Done():
	case <-time.After(time.Second):
		t.Fatalf("connection should be done")
	}
	if rep.Err() == nil {
		t.Fatalf("broken connection should report its cause")
	}
}

func TestConnClose(t *testing.T) {
	rep, req := openPair(t, "conn-close", zmtp.Rep, zmtp.Req)
	defer rep.Close()

	if req.Err() != nil {
		t.Fatalf("live connection should not report an error: %v", req.Err())
	}
	if err := req.Close(); err != nil {
		t.Fatalf("could not close connection: %+v", err)
	}
	<-req.Done()
	if req.Err() != nil {
		t.Fatalf("closed connection should not report an error: %v", req.Err())
	}

	// the peer sees the end of the stream.
	if _, err := rep.RecvMsg(); err == nil {
		t.Fatalf("expected an error reading from a closed peer")
	}
	<-rep.Done()
	if rep.Err() == nil {
		t.Fatalf("broken connection should report its cause")
	}
}

func TestConnIncompatible(t *testing.T) {
	c1, c2 := inproc.Pipe(inproc.Addr("conn-incompatible"))

	var grp errgroup.Group
	errs := make([]error, 2)
	grp.Go(func() error {
		_, errs[0] = zmtp.Open(c1, null.Security(), zmtp.Req, nil, true)
		return nil
	})
	grp.Go(func() error {
		_, errs[1] = zmtp.Open(c2, null.Security(), zmtp.Req, nil, false)
		return nil
	})
	_ = grp.Wait()

	for i, err := range errs {
		if !errors.Is(err, zmtp.ErrIncompatible) {
			t.Fatalf("side %d: got=%+v, want=%v", i, err, zmtp.ErrIncompatible)
		}
	}
}
