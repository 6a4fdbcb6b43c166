// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package i2ctest provides an in-memory I2C device for tests.
package i2ctest

import (
	"sync"

	"github.com/go-zeromq/datalink/i2c"
	"github.com/pkg/errors"
)

// Write is a register write recorded by a Bus.
type Write struct {
	Reg byte
	Val byte
}

// Bus is an in-memory register file implementing i2c.Bus.
// Reads of consecutive registers auto-increment, as real devices do.
type Bus struct {
	mu     sync.Mutex
	regs   [256]byte
	writes []Write
	reads  map[byte]int
	hooks  map[byte]func(n int) byte
	closed bool
	err    error
}

// New returns a Bus initialized with the given register values.
func New(regs map[byte]byte) *Bus {
	bus := &Bus{
		reads: make(map[byte]int),
		hooks: make(map[byte]func(n int) byte),
	}
	for reg, val := range regs {
		bus.regs[reg] = val
	}
	return bus
}

// Set sets the value of a register without recording a write.
func (bus *Bus) Set(reg, val byte) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.regs[reg] = val
}

// SetErr makes every subsequent read and write fail with err.
// A nil err restores normal operation.
func (bus *Bus) SetErr(err error) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.err = err
}

// Get returns the current value of a register.
func (bus *Bus) Get(reg byte) byte {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.regs[reg]
}

// OnRead installs f to compute the value of reg each time a transfer starts
// at reg. f receives the number of previous transfers starting at reg.
func (bus *Bus) OnRead(reg byte, f func(n int) byte) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.hooks[reg] = f
}

// Reads returns the number of transfers that started at reg.
func (bus *Bus) Reads(reg byte) int {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.reads[reg]
}

// Writes returns the register writes, in order.
func (bus *Bus) Writes() []Write {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return append([]Write(nil), bus.writes...)
}

// Closed reports whether Close was called.
func (bus *Bus) Closed() bool {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.closed
}

// ReadRegisters implements i2c.Bus.
func (bus *Bus) ReadRegisters(reg byte, n int) ([]byte, error) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if err := bus.check(); err != nil {
		return nil, err
	}
	if n <= 0 || int(reg)+n > len(bus.regs) {
		return nil, errors.Errorf("i2ctest: invalid read of %d bytes at register 0x%02x", n, reg)
	}

	if f, ok := bus.hooks[reg]; ok {
		bus.regs[reg] = f(bus.reads[reg])
	}
	bus.reads[reg]++

	out := make([]byte, n)
	copy(out, bus.regs[int(reg):int(reg)+n])
	return out, nil
}

// WriteRegister implements i2c.Bus.
func (bus *Bus) WriteRegister(reg, val byte) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if err := bus.check(); err != nil {
		return err
	}
	bus.regs[reg] = val
	bus.writes = append(bus.writes, Write{Reg: reg, Val: val})
	return nil
}

// Close implements i2c.Bus.
func (bus *Bus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.closed = true
	return nil
}

func (bus *Bus) check() error {
	switch {
	case bus.closed:
		return i2c.ErrClosed
	case bus.err != nil:
		return bus.err
	}
	return nil
}

var _ i2c.Bus = (*Bus)(nil)
