// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-zeromq/datalink/sensor/lsm9ds1"
	"github.com/go-zeromq/datalink/sensor/mpl3115a2"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

const (
	printPeriod = time.Second
	csvPeriod   = 50 * time.Millisecond
)

func altimeterAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dev, err := mpl3115a2.Open(c.Int(AdapterFlag.Name))
	if err != nil {
		return err
	}
	defer dev.Close()

	if name := c.String(CSVFlag.Name); name != "" {
		f, err := os.Create(name)
		if err != nil {
			return errors.Wrap(err, "could not create CSV file")
		}
		defer f.Close()

		log.WithField("file", name).Info("logging altimeter readings")
		err = logCSV(ctx, dev, f)
		if err != nil {
			return err
		}
		return f.Close()
	}

	return every(ctx, printPeriod, func() error {
		data, err := dev.Altitude(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Temperature: %g (C)\n", data.Temperature)
		fmt.Fprintf(os.Stdout, "Altitude: %g (m)\n", data.Altitude)
		return nil
	})
}

// altimeter reads altitude and temperature.
type altimeter interface {
	Altitude(ctx context.Context) (mpl3115a2.Data, error)
}

func logCSV(ctx context.Context, dev altimeter, w io.Writer) error {
	out := csv.NewWriter(w)
	err := out.Write([]string{"Temperature (C)", "Altitude (m)"})
	if err != nil {
		return errors.Wrap(err, "could not write CSV header")
	}

	return every(ctx, csvPeriod, func() error {
		data, err := dev.Altitude(ctx)
		if err != nil {
			return err
		}
		err = out.Write([]string{
			strconv.FormatFloat(data.Temperature, 'g', -1, 64),
			strconv.FormatFloat(data.Altitude, 'g', -1, 64),
		})
		if err != nil {
			return errors.Wrap(err, "could not write CSV row")
		}
		out.Flush()
		return out.Error()
	})
}

func imuAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dev, err := lsm9ds1.Open(c.Int(AdapterFlag.Name))
	if err != nil {
		return err
	}
	defer dev.Close()

	return every(ctx, printPeriod, func() error {
		return printIMU(os.Stdout, dev)
	})
}

// imu reads the three sensors of an inertial module.
type imu interface {
	Accel() (lsm9ds1.Vector, error)
	Gyro() (lsm9ds1.Vector, error)
	Mag() (lsm9ds1.Vector, error)
}

func printIMU(w io.Writer, dev imu) error {
	for _, v := range []struct {
		name string
		read func() (lsm9ds1.Vector, error)
	}{
		{"Acceleration", dev.Accel},
		{"Gyro", dev.Gyro},
		{"Mag", dev.Mag},
	} {
		vec, err := v.read()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s(X, Y, Z): %v\n", v.name, vec)
	}
	return nil
}

// every runs f immediately, then once per period until ctx is done.
// It returns nil once ctx is done.
func every(ctx context.Context, period time.Duration, f func() error) error {
	tick := time.NewTicker(period)
	defer tick.Stop()

	for {
		err := f()
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}
