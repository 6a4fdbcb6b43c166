// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command data-server answers the requests of data clients, either by
// echoing them or with the readings of an MPL3115A2 altimeter.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/go-zeromq/datalink"
	"github.com/go-zeromq/datalink/internal/config"
	"github.com/go-zeromq/datalink/sensor/mpl3115a2"
	"github.com/go-zeromq/datalink/server"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"
)

func main() {
	err := run(os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, pflag.ErrHelp):
	default:
		logrus.WithField("process", "data-server").WithError(err).Error("data-server failed")
		os.Exit(1)
	}
}

func run(args []string) error {
	r, err := config.LoadServer(args)
	if err != nil {
		return err
	}
	err = r.Logger.Apply(logrus.StandardLogger())
	if err != nil {
		return err
	}
	cfg := r.Server

	var h server.Handler
	switch cfg.Handler {
	case "echo":
		h = server.Echo(cfg.EchoPrefix)
	case "mpl3115a2":
		dev, err := mpl3115a2.Open(cfg.Adapter)
		if err != nil {
			return errors.Wrapf(err, "could not open altimeter on adapter %d", cfg.Adapter)
		}
		defer dev.Close()
		h = server.Altimeter(dev)
	default:
		return errors.Errorf("unknown handler %q", cfg.Handler)
	}

	opts := []server.Option{
		server.WithMaxRequests(cfg.MaxRequests),
		server.WithSocketOptions(datalink.WithMaxMsgSize(cfg.MaxMsgSize)),
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, server.WithRateLimit(rate.Limit(cfg.RateLimit), cfg.Burst))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return server.New(cfg.Endpoint, h, opts...).ListenAndServe(ctx)
}
