// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command data-client sends requests to a data server and prints the replies.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/go-zeromq/datalink/client"
	"github.com/go-zeromq/datalink/internal/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	err := run(os.Args[1:])
	switch {
	case err == nil:
	case errors.Is(err, pflag.ErrHelp):
	default:
		logrus.WithField("process", "data-client").WithError(err).Error("data-client failed")
		os.Exit(1)
	}
}

func run(args []string) error {
	r, err := config.LoadClient(args)
	if err != nil {
		return err
	}
	err = r.Logger.Apply(logrus.StandardLogger())
	if err != nil {
		return err
	}
	if r.UsedConfigFile != "" {
		logrus.WithField("file", r.UsedConfigFile).Debug("configuration loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := client.Config{
		Endpoint:   r.Client.Endpoint,
		Requests:   r.Client.Requests,
		Payload:    []byte(r.Client.Payload),
		Timeout:    r.Client.Timeout,
		DialRetry:  r.Client.DialRetry,
		MaxRetries: r.Client.MaxRetries,
		Reconnect:  r.Client.Reconnect,
	}
	return client.Run(ctx, cfg, os.Stdout)
}
