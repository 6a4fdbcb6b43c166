// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/pkg/errors"
)

func TestFrameHeader(t *testing.T) {
	for _, tc := range []struct {
		name string
		cmd  bool
		more bool
		size int
		want []byte
	}{
		{name: "empty", size: 0, want: []byte{0x00, 0x00}},
		{name: "short", size: 5, want: []byte{0x00, 0x05}},
		{name: "more", more: true, size: 255, want: []byte{0x01, 0xFF}},
		{name: "cmd", cmd: true, size: 3, want: []byte{0x04, 0x03}},
		{
			name: "long",
			size: 256,
			want: []byte{0x02, 0, 0, 0, 0, 0, 0, 0x01, 0x00},
		},
		{
			name: "long-more",
			more: true,
			size: 0x010203,
			want: []byte{0x03, 0, 0, 0, 0, 0, 0x01, 0x02, 0x03},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := frameHeader(tc.cmd, tc.more, tc.size)
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("invalid header:\ngot= % x\nwant=% x", got, tc.want)
			}
		})
	}
}

func TestReadFrame(t *testing.T) {
	for _, tc := range []struct {
		name string
		cmd  bool
		more bool
		body []byte
	}{
		{name: "empty"},
		{name: "short", body: []byte("hello")},
		{name: "short-more", more: true, body: []byte("hello")},
		{name: "cmd", cmd: true, body: []byte("\x05READY")},
		{name: "long", body: bytes.Repeat([]byte("x"), 300)},
		{name: "long-more", more: true, body: bytes.Repeat([]byte("y"), 70000)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			raw := append(frameHeader(tc.cmd, tc.more, len(tc.body)), tc.body...)
			fl, body, err := readFrame(bytes.NewReader(raw), DefaultMaxMsgSize)
			if err != nil {
				t.Fatalf("could not read frame: %+v", err)
			}
			if got, want := fl.hasMore(), tc.more; got != want {
				t.Fatalf("invalid more flag: got=%v, want=%v", got, want)
			}
			if got, want := fl.isCommand(), tc.cmd; got != want {
				t.Fatalf("invalid command flag: got=%v, want=%v", got, want)
			}
			if got, want := fl.isLong(), len(tc.body) > 255; got != want {
				t.Fatalf("invalid long flag: got=%v, want=%v", got, want)
			}
			if !bytes.Equal(body, tc.body) {
				t.Fatalf("invalid body: got %d bytes, want %d bytes", len(body), len(tc.body))
			}
		})
	}
}

func TestReadFrameTruncated(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  []byte
	}{
		{name: "header", raw: []byte{0x00}},
		{name: "long-size", raw: []byte{0x02, 0, 0, 0}},
		{name: "body", raw: []byte{0x00, 0x05, 'h', 'e'}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := readFrame(bytes.NewReader(tc.raw), DefaultMaxMsgSize)
			if err != io.ErrUnexpectedEOF {
				t.Fatalf("invalid error: got=%v, want=%v", err, io.ErrUnexpectedEOF)
			}
		})
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	long := func(fl byte, size uint64) []byte {
		hdr := make([]byte, 9)
		hdr[0] = fl
		binary.BigEndian.PutUint64(hdr[1:], size)
		return hdr
	}

	for _, tc := range []struct {
		name  string
		raw   []byte
		limit int64
	}{
		{name: "huge-cmd", raw: long(0x06, 1<<62), limit: DefaultMaxMsgSize},
		{name: "max-uint64", raw: long(0x02, ^uint64(0)), limit: DefaultMaxMsgSize},
		{name: "above-default", raw: long(0x02, uint64(DefaultMaxMsgSize)+1), limit: DefaultMaxMsgSize},
		{name: "short-above-limit", raw: []byte{0x00, 0x10}, limit: 8},
		{name: "no-budget-left", raw: []byte{0x00, 0x01, 'x'}, limit: 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, body, err := readFrame(bytes.NewReader(tc.raw), tc.limit)
			if !errors.Is(err, errOverflow) {
				t.Fatalf("invalid error: got=%v, want=%v", err, errOverflow)
			}
			if body != nil {
				t.Fatalf("oversized frame should not be read")
			}
		})
	}

	// a frame of exactly limit bytes is fine.
	raw := append([]byte{0x00, 0x08}, "12345678"...)
	if _, body, err := readFrame(bytes.NewReader(raw), 8); err != nil || string(body) != "12345678" {
		t.Fatalf("could not read frame at limit: body=%q, err=%+v", body, err)
	}
}

func TestCmd(t *testing.T) {
	cmd := Cmd{Name: CmdReady, Body: []byte("body")}
	raw, err := cmd.marshalZMTP()
	if err != nil {
		t.Fatalf("could not marshal command: %+v", err)
	}
	if got, want := raw, []byte("\x05READYbody"); !bytes.Equal(got, want) {
		t.Fatalf("invalid command:\ngot= %q\nwant=%q", got, want)
	}

	var got Cmd
	if err := got.unmarshalZMTP(raw); err != nil {
		t.Fatalf("could not unmarshal command: %+v", err)
	}
	if got.Name != cmd.Name || !bytes.Equal(got.Body, cmd.Body) {
		t.Fatalf("round trip failed:\ngot= %#v\nwant=%#v", got, cmd)
	}

	for _, name := range []string{"", string(bytes.Repeat([]byte("N"), 256))} {
		bad := Cmd{Name: name}
		if _, err := bad.marshalZMTP(); err != ErrBadCmd {
			t.Fatalf("invalid error for name of length %d: got=%v, want=%v", len(name), err, ErrBadCmd)
		}
	}

	for _, raw := range [][]byte{{0x00}, {0x05, 'R', 'E'}} {
		var cmd Cmd
		if err := cmd.unmarshalZMTP(raw); err != ErrBadCmd {
			t.Fatalf("invalid error for %q: got=%v, want=%v", raw, err, ErrBadCmd)
		}
	}
}

func TestMsg(t *testing.T) {
	msg := NewMsgFromString([]string{"hello", " ", "world"})
	if got, want := string(msg.Bytes()), "hello world"; got != want {
		t.Fatalf("invalid bytes: got=%q, want=%q", got, want)
	}
	if got, want := msg.String(), `Msg{Frames:{"hello", " ", "world"}}`; got != want {
		t.Fatalf("invalid string: got=%q, want=%q", got, want)
	}
	if msg.IsCmd() {
		t.Fatalf("user message flagged as command")
	}

	clone := msg.Clone()
	clone.Frames[0][0] = 'H'
	if got, want := string(msg.Frames[0]), "hello"; got != want {
		t.Fatalf("clone shares memory: got=%q, want=%q", got, want)
	}
}
