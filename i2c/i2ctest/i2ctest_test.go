// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package i2ctest

import (
	"testing"

	"github.com/go-zeromq/datalink/i2c"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestBus(t *testing.T) {
	bus := New(map[byte]byte{0x10: 1, 0x11: 2, 0x12: 3})

	raw, err := bus.ReadRegisters(0x10, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, raw)

	require.NoError(t, bus.WriteRegister(0x11, 0xAA))
	require.Equal(t, byte(0xAA), bus.Get(0x11))
	require.Equal(t, []Write{{Reg: 0x11, Val: 0xAA}}, bus.Writes())

	_, err = bus.ReadRegisters(0xFF, 2)
	require.Error(t, err)

	calls := 0
	bus.OnRead(0x00, func(n int) byte {
		calls++
		return byte(n)
	})
	for i := 0; i < 3; i++ {
		raw, err := bus.ReadRegisters(0x00, 1)
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i)}, raw)
	}
	require.Equal(t, 3, calls)
	require.Equal(t, 3, bus.Reads(0x00))

	boom := errors.New("boom")
	bus.SetErr(boom)
	require.ErrorIs(t, bus.WriteRegister(0x00, 1), boom)

	require.NoError(t, bus.Close())
	require.True(t, bus.Closed())
	_, err = bus.ReadRegisters(0x10, 1)
	require.ErrorIs(t, err, i2c.ErrClosed)
}
