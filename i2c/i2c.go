// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package i2c gives register-level access to devices on an I2C bus.
package i2c

import (
	"github.com/pkg/errors"
)

// Bus is a connection to a single target device on an I2C bus.
type Bus interface {
	// ReadRegisters writes the register address reg and reads back n bytes
	// within the same transfer. Devices auto-increment the register address.
	ReadRegisters(reg byte, n int) ([]byte, error)

	// WriteRegister writes val into register reg.
	WriteRegister(reg, val byte) error

	// Close releases the bus.
	Close() error
}

var (
	// ErrClosed is returned when a closed bus is used.
	ErrClosed = errors.New("i2c: bus closed")

	errReadSize = errors.New("i2c: invalid read size")
)

// maxRead is the largest transfer size a single I2C message can carry.
const maxRead = 1<<16 - 1

func checkRead(n int) error {
	if n <= 0 || n > maxRead {
		return errors.Wrapf(errReadSize, "n=%d", n)
	}
	return nil
}
