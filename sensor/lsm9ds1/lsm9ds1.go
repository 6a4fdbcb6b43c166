// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lsm9ds1 is a driver for the ST LSM9DS1 inertial module.
//
// The module exposes two I2C devices: the accelerometer and gyroscope on one
// address, the magnetometer on another.
package lsm9ds1

import (
	"encoding/binary"
	"fmt"

	"github.com/go-zeromq/datalink/i2c"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// I2C addresses of the devices.
const (
	AddressXLG = 0x6A // accelerometer and gyroscope
	AddressM   = 0x1C // magnetometer
)

const (
	regWhoAmI = 0x0F

	idXLG = 0x68
	idM   = 0x3D

	regOutXG  = 0x18 // OUT_X_L_G
	regOutXXL = 0x28 // OUT_X_L_XL
	regOutXM  = 0x28 // OUT_X_L_M
)

// ErrDevice is returned when a device on the bus is not part of an LSM9DS1.
var ErrDevice = errors.New("lsm9ds1: unexpected device")

// Vector holds the raw X, Y and Z outputs of a sensor.
type Vector struct {
	X, Y, Z int16
}

func (v Vector) String() string {
	return fmt.Sprintf("%d %d %d", v.X, v.Y, v.Z)
}

// Device is an LSM9DS1 module.
type Device struct {
	xlg i2c.Bus
	mag i2c.Bus
}

// Open opens both devices of the module on the given I2C adapter.
func Open(adapter int) (*Device, error) {
	xlg, err := i2c.Open(adapter, AddressXLG)
	if err != nil {
		return nil, err
	}
	mag, err := i2c.Open(adapter, AddressM)
	if err != nil {
		xlg.Close()
		return nil, err
	}

	dev, err := New(xlg, mag)
	if err != nil {
		xlg.Close()
		mag.Close()
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"process": "lsm9ds1",
		"adapter": adapter,
	}).Info("LSM9DS1 detected")
	return dev, nil
}

// New checks the identity of the accelerometer/gyroscope device xlg and
// of the magnetometer device mag.
func New(xlg, mag i2c.Bus) (*Device, error) {
	for _, dev := range []struct {
		name string
		bus  i2c.Bus
		id   byte
	}{
		{"accelerometer/gyroscope", xlg, idXLG},
		{"magnetometer", mag, idM},
	} {
		raw, err := dev.bus.ReadRegisters(regWhoAmI, 1)
		if err != nil {
			return nil, errors.Wrapf(err, "lsm9ds1: could not read %s identity", dev.name)
		}
		if raw[0] != dev.id {
			return nil, errors.Wrapf(ErrDevice, "%s WHO_AM_I=0x%02x, want=0x%02x", dev.name, raw[0], dev.id)
		}
	}
	return &Device{xlg: xlg, mag: mag}, nil
}

// Accel returns the raw accelerometer output.
func (dev *Device) Accel() (Vector, error) {
	v, err := readVector(dev.xlg, regOutXXL)
	return v, errors.Wrap(err, "lsm9ds1: could not read accelerometer")
}

// Gyro returns the raw gyroscope output.
func (dev *Device) Gyro() (Vector, error) {
	v, err := readVector(dev.xlg, regOutXG)
	return v, errors.Wrap(err, "lsm9ds1: could not read gyroscope")
}

// Mag returns the raw magnetometer output.
func (dev *Device) Mag() (Vector, error) {
	v, err := readVector(dev.mag, regOutXM)
	return v, errors.Wrap(err, "lsm9ds1: could not read magnetometer")
}

// Close closes both devices.
func (dev *Device) Close() error {
	err1 := dev.xlg.Close()
	err2 := dev.mag.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func readVector(bus i2c.Bus, reg byte) (Vector, error) {
	raw, err := bus.ReadRegisters(reg, 6)
	if err != nil {
		return Vector{}, err
	}
	return Vector{
		X: int16(binary.LittleEndian.Uint16(raw[0:2])),
		Y: int16(binary.LittleEndian.Uint16(raw[2:4])),
		Z: int16(binary.LittleEndian.Uint16(raw[4:6])),
	}, nil
}
