// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sensor-read prints the readings of the sensors of the board.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var (
	app = cli.NewApp()
	log = logrus.WithField("process", "sensor-read")
)

var (
	// AdapterFlag selects the I2C adapter the sensor is attached to.
	AdapterFlag = cli.IntFlag{
		Name:  "adapter",
		Value: 1,
		Usage: "I2C adapter number (/dev/i2c-N)",
	}
	// CSVFlag logs altimeter readings to a CSV file.
	CSVFlag = cli.StringFlag{
		Name:  "csv",
		Usage: "log temperature and altitude to this CSV file every 50ms",
	}
	// LogLevelFlag sets the logger level.
	LogLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Value: "info",
		Usage: "logger level (trace, debug, info, warn, error)",
	}
)

func init() {
	app.Name = "sensor-read"
	app.Usage = "reads the sensors attached to an I2C adapter"
	app.Flags = []cli.Flag{LogLevelFlag}
	app.Before = func(ctx *cli.Context) error {
		lvl, err := logrus.ParseLevel(ctx.GlobalString(LogLevelFlag.Name))
		if err != nil {
			return err
		}
		logrus.SetLevel(lvl)
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:   "mpl3115a2",
			Usage:  "prints the temperature and altitude",
			Flags:  []cli.Flag{AdapterFlag, CSVFlag},
			Action: altimeterAction,
		},
		{
			Name:   "lsm9ds1",
			Usage:  "prints the acceleration, rotation and magnetic field",
			Flags:  []cli.Flag{AdapterFlag},
			Action: imuAction,
		},
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("sensor-read failed")
		os.Exit(1)
	}
}
