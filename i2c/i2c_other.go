// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package i2c

import (
	"runtime"

	"github.com/pkg/errors"
)

// Dev is a device on an I2C adapter. It is only available on Linux.
type Dev struct{}

// Open always fails on this system.
func Open(adapter int, addr uint16) (*Dev, error) {
	return nil, errors.Errorf("i2c: adapters are not supported on %s", runtime.GOOS)
}

// ReadRegisters implements Bus.
func (*Dev) ReadRegisters(reg byte, n int) ([]byte, error) {
	if err := checkRead(n); err != nil {
		return nil, err
	}
	return nil, ErrClosed
}

// WriteRegister implements Bus.
func (*Dev) WriteRegister(reg, val byte) error { return ErrClosed }

// Close implements Bus.
func (*Dev) Close() error { return nil }

var _ Bus = (*Dev)(nil)
