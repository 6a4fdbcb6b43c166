// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mpl3115a2 is a driver for the NXP MPL3115A2 altimeter.
//
// The device reports either barometric pressure or altitude, together with
// the temperature. Switching between both modes goes through standby.
package mpl3115a2

import (
	"context"
	"time"

	"github.com/go-zeromq/datalink/i2c"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Address is the I2C address of the device.
const Address = 0x60

const (
	regStatus   = 0x00
	regOutP     = 0x01 // OUT_P_MSB, first of 3 pressure/altitude and 2 temperature registers
	regWhoAmI   = 0x0C
	regPTDatCfg = 0x13
	regCtrl1    = 0x26

	deviceID = 0xC4

	ctrlSBYB = 0x01 // active mode when set
	ctrlALT  = 0x80 // altimeter mode when set

	cfgTDEFE = 0x01
	cfgPDEFE = 0x02
	cfgDREM  = 0x04

	statusPTDR = 0x08

	dataLen = 5

	defaultPoll = 10 * time.Millisecond
)

var (
	// ErrDevice is returned when the device on the bus is not an MPL3115A2.
	ErrDevice = errors.New("mpl3115a2: unexpected device")
)

type mode int

const (
	barometer mode = iota
	altimeter
)

func (m mode) String() string {
	switch m {
	case altimeter:
		return "altimeter"
	default:
		return "barometer"
	}
}

// Data is a single reading.
// Only one of Pressure (Pa) or Altitude (m) is set, depending on the
// mode the reading was taken in. Temperature is in degrees Celsius.
type Data struct {
	Pressure    float64
	Altitude    float64
	Temperature float64
}

// Device is an MPL3115A2 altimeter.
// A Device is not safe for concurrent use.
type Device struct {
	bus  i2c.Bus
	mode mode
	poll time.Duration
	log  *logrus.Entry
}

// Open opens the device on the given I2C adapter.
func Open(adapter int) (*Device, error) {
	bus, err := i2c.Open(adapter, Address)
	if err != nil {
		return nil, err
	}
	dev, err := New(bus)
	if err != nil {
		bus.Close()
		return nil, err
	}
	dev.log.WithField("adapter", adapter).Info("MPL3115A2 detected")
	return dev, nil
}

// New checks the identity of the device on bus, enables the data-ready
// flags and puts the device in altimeter mode.
func New(bus i2c.Bus) (*Device, error) {
	dev := &Device{
		bus:  bus,
		poll: defaultPoll,
		log:  logrus.WithField("process", "mpl3115a2"),
	}

	id, err := dev.read(regWhoAmI)
	if err != nil {
		return nil, errors.Wrap(err, "mpl3115a2: could not read device identity")
	}
	if id != deviceID {
		return nil, errors.Wrapf(ErrDevice, "WHO_AM_I=0x%02x, want=0x%02x", id, deviceID)
	}

	if err := dev.configureDataReady(); err != nil {
		return nil, errors.Wrap(err, "mpl3115a2: could not configure data-ready flags")
	}
	if err := dev.setMode(altimeter); err != nil {
		return nil, errors.Wrap(err, "mpl3115a2: could not enter altimeter mode")
	}
	return dev, nil
}

// Altitude returns the altitude and temperature.
func (dev *Device) Altitude(ctx context.Context) (Data, error) {
	raw, err := dev.sample(ctx, altimeter)
	if err != nil {
		return Data{}, err
	}
	return Data{
		Altitude:    decodeAltitude(raw[0], raw[1], raw[2]),
		Temperature: decodeTemperature(raw[3], raw[4]),
	}, nil
}

// Pressure returns the barometric pressure and temperature.
func (dev *Device) Pressure(ctx context.Context) (Data, error) {
	raw, err := dev.sample(ctx, barometer)
	if err != nil {
		return Data{}, err
	}
	return Data{
		Pressure:    decodePressure(raw[0], raw[1], raw[2]),
		Temperature: decodeTemperature(raw[3], raw[4]),
	}, nil
}

// Close closes the underlying bus.
func (dev *Device) Close() error {
	return dev.bus.Close()
}

func (dev *Device) sample(ctx context.Context, m mode) ([]byte, error) {
	if dev.mode != m {
		if err := dev.setMode(m); err != nil {
			return nil, errors.Wrapf(err, "mpl3115a2: could not enter %v mode", m)
		}
	}

	if err := dev.waitReady(ctx); err != nil {
		return nil, err
	}

	raw, err := dev.bus.ReadRegisters(regOutP, dataLen)
	if err != nil {
		return nil, errors.Wrap(err, "mpl3115a2: could not read data registers")
	}
	return raw, nil
}

func (dev *Device) waitReady(ctx context.Context) error {
	for {
		status, err := dev.read(regStatus)
		if err != nil {
			return errors.Wrap(err, "mpl3115a2: could not read status")
		}
		if status&statusPTDR != 0 {
			return nil
		}

		timer := time.NewTimer(dev.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(ctx.Err(), "mpl3115a2: no data ready")
		case <-timer.C:
		}
	}
}

// standby puts the device in standby and returns the previous CTRL_REG1.
func (dev *Device) standby() (byte, error) {
	ctrl, err := dev.read(regCtrl1)
	if err != nil {
		return 0, err
	}
	err = dev.bus.WriteRegister(regCtrl1, ctrl&^ctrlSBYB)
	if err != nil {
		return 0, err
	}
	return ctrl, nil
}

func (dev *Device) setMode(m mode) error {
	ctrl, err := dev.standby()
	if err != nil {
		return err
	}

	switch m {
	case altimeter:
		ctrl |= ctrlALT
	default:
		ctrl &^= ctrlALT
	}

	err = dev.bus.WriteRegister(regCtrl1, ctrl|ctrlSBYB)
	if err != nil {
		return err
	}
	dev.mode = m
	return nil
}

func (dev *Device) configureDataReady() error {
	ctrl, err := dev.standby()
	if err != nil {
		return err
	}
	err = dev.bus.WriteRegister(regPTDatCfg, cfgDREM|cfgPDEFE|cfgTDEFE)
	if err != nil {
		return err
	}
	return dev.bus.WriteRegister(regCtrl1, ctrl|ctrlSBYB)
}

func (dev *Device) read(reg byte) (byte, error) {
	raw, err := dev.bus.ReadRegisters(reg, 1)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}
