// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package i2c

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ioctl requests, from linux/i2c-dev.h.
const (
	ioctlSlave = 0x0703 // I2C_SLAVE
	ioctlFuncs = 0x0705 // I2C_FUNCS
	ioctlRdwr  = 0x0707 // I2C_RDWR

	funcI2C  = 0x00000001 // I2C_FUNC_I2C
	flagRead = 0x0001     // I2C_M_RD
)

// message mirrors struct i2c_msg.
type message struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   *byte
}

// rdwr mirrors struct i2c_rdwr_ioctl_data.
type rdwr struct {
	msgs  *message
	nmsgs uint32
}

// Dev is a device on a Linux I2C adapter, accessed through /dev/i2c-N.
type Dev struct {
	mu   sync.Mutex
	f    *os.File
	addr uint16
}

// Open opens the I2C adapter with the given number and selects the target
// device at addr.
func Open(adapter int, addr uint16) (*Dev, error) {
	name := fmt.Sprintf("/dev/i2c-%d", adapter)
	f, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "i2c: could not open adapter %q", name)
	}

	err = unix.IoctlSetInt(int(f.Fd()), ioctlSlave, int(addr))
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "i2c: could not select device 0x%02x on %q", addr, name)
	}

	var funcs uint // unsigned long
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), ioctlFuncs, uintptr(unsafe.Pointer(&funcs)))
	if errno != 0 {
		f.Close()
		return nil, errors.Wrapf(errno, "i2c: could not query functionalities of %q", name)
	}
	if funcs&funcI2C == 0 {
		f.Close()
		return nil, errors.Errorf("i2c: adapter %q does not support combined transfers", name)
	}

	return &Dev{f: f, addr: addr}, nil
}

// ReadRegisters implements Bus.
func (d *Dev) ReadRegisters(reg byte, n int) ([]byte, error) {
	if err := checkRead(n); err != nil {
		return nil, err
	}

	out := make([]byte, n)
	msgs := []message{
		{addr: d.addr, len: 1, buf: &reg},
		{addr: d.addr, flags: flagRead, len: uint16(n), buf: &out[0]},
	}
	if err := d.transfer(msgs); err != nil {
		return nil, errors.Wrapf(err, "i2c: could not read %d bytes from register 0x%02x", n, reg)
	}
	return out, nil
}

// WriteRegister implements Bus.
func (d *Dev) WriteRegister(reg, val byte) error {
	buf := []byte{reg, val}
	msgs := []message{
		{addr: d.addr, len: uint16(len(buf)), buf: &buf[0]},
	}
	if err := d.transfer(msgs); err != nil {
		return errors.Wrapf(err, "i2c: could not write register 0x%02x", reg)
	}
	return nil
}

func (d *Dev) transfer(msgs []message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f == nil {
		return ErrClosed
	}

	data := rdwr{msgs: &msgs[0], nmsgs: uint32(len(msgs))}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), ioctlRdwr, uintptr(unsafe.Pointer(&data)))
	runtime.KeepAlive(msgs)
	if errno != 0 {
		return errno
	}
	return nil
}

// Close implements Bus.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

var _ Bus = (*Dev)(nil)
