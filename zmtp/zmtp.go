// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zmtp implements the ZeroMQ Message Transport Protocol as defined
// in https://rfc.zeromq.org/spec:23/ZMTP/.
//
// The package provides the wire codec (greeting, frames, commands and
// metadata) and a Conn type performing the ZMTP handshake over any
// io.ReadWriteCloser.
package zmtp

import (
	"bytes"

	"github.com/pkg/errors"
)

var (
	errGreeting      = errors.New("zmtp: invalid greeting received")
	errSecMech       = errors.New("zmtp: invalid security mechanism")
	errBadSec        = errors.New("zmtp: invalid or unsupported security mechanism")
	errOverflow      = errors.New("zmtp: overflow")
	errEmptyAppMDKey = errors.New("zmtp: empty application metadata key")
	errDupAppMDKey   = errors.New("zmtp: duplicate application metadata key")
	errBoolCnv       = errors.New("zmtp: invalid byte to bool conversion")

	// ErrBadCmd is returned when a command name is invalid or unexpected.
	ErrBadCmd = errors.New("zmtp: invalid command name")
	// ErrBadFrame is returned when a frame does not have the expected kind.
	ErrBadFrame = errors.New("zmtp: invalid frame")
	// ErrIncompatible is returned when the peer socket type cannot be paired
	// with the local socket type.
	ErrIncompatible = errors.New("zmtp: incompatible socket types")
)

const (
	sigHeader = 0xFF
	sigFooter = 0x7F

	majorVersion uint8 = 3
	minorVersion uint8 = 0

	hasMoreBitFlag   = 0x1
	isLongBitFlag    = 0x2
	isCommandBitFlag = 0x4

	greetingLen = 64

	// DefaultMaxMsgSize is the largest message, in bytes, accepted from a
	// peer unless WithMaxMsgSize says otherwise.
	DefaultMaxMsgSize int64 = 64 << 20
)

var defaultVersion = [2]uint8{majorVersion, minorVersion}

const (
	maxUint = ^uint(0)
	maxInt  = int(maxUint >> 1)
)

func asString(slice []byte) string {
	i := bytes.IndexByte(slice, 0)
	if i < 0 {
		i = len(slice)
	}
	return string(slice[:i])
}

func asByte(b bool) byte {
	if b {
		return 0x01
	}
	return 0x00
}

func asBool(b byte) (bool, error) {
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	}

	return false, errBoolCnv
}
