// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package client implements the data client: a request loop sending a fixed
// payload over a REQ socket and printing every reply.
package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-zeromq/datalink"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Defaults of the data client.
const (
	DefaultEndpoint  = "tcp://localhost:5555"
	DefaultRequests  = 10
	DefaultPayload   = "Can I please have data?"
	DefaultDialRetry = 250 * time.Millisecond
)

var errInvalidConfig = errors.New("client: invalid configuration")

// Config configures the request loop.
type Config struct {
	Endpoint string // remote end-point to dial
	Requests int    // number of requests to send
	Payload  []byte // content of every request

	// Timeout bounds the wait for a connection and for each reply.
	// Zero means wait forever.
	Timeout time.Duration

	DialRetry  time.Duration // delay between dial attempts
	MaxRetries int           // number of dial retries, -1 for no limit
	Reconnect  bool          // redial a lost connection

	// Logger receives the diagnostics. It defaults to the standard logger.
	Logger *logrus.Entry
}

// DefaultConfig returns the configuration of the original data client.
func DefaultConfig() Config {
	return Config{
		Endpoint:   DefaultEndpoint,
		Requests:   DefaultRequests,
		Payload:    []byte(DefaultPayload),
		DialRetry:  DefaultDialRetry,
		MaxRetries: -1,
	}
}

// Validate checks the configuration is usable.
func (cfg Config) Validate() error {
	switch {
	case cfg.Endpoint == "":
		return errors.Wrap(errInvalidConfig, "empty endpoint")
	case cfg.Requests < 0:
		return errors.Wrapf(errInvalidConfig, "negative number of requests (%d)", cfg.Requests)
	case cfg.Timeout < 0:
		return errors.Wrapf(errInvalidConfig, "negative timeout (%v)", cfg.Timeout)
	case cfg.DialRetry <= 0:
		return errors.Wrapf(errInvalidConfig, "invalid dial retry delay (%v)", cfg.DialRetry)
	case cfg.MaxRetries < -1:
		return errors.Wrapf(errInvalidConfig, "invalid number of dial retries (%d)", cfg.MaxRetries)
	}
	return nil
}

// Requester sends requests and receives their replies.
type Requester interface {
	SendContext(ctx context.Context, msg datalink.Msg) error
	RecvContext(ctx context.Context) (datalink.Msg, error)
}

// Run connects a REQ socket to cfg.Endpoint and runs the request loop,
// printing progress to out. The socket is closed before Run returns.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	err := cfg.Validate()
	if err != nil {
		return err
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.WithField("process", "client")
	}
	log = log.WithField("session", uuid.New().String())

	fmt.Fprintln(out, "Connecting to data-server...")

	req := datalink.NewReq(ctx,
		datalink.WithLogger(log),
		datalink.WithTimeout(cfg.Timeout),
		datalink.WithDialerRetry(cfg.DialRetry),
		datalink.WithDialerMaxRetries(cfg.MaxRetries),
		datalink.WithAutomaticReconnect(cfg.Reconnect),
	)
	defer req.Close()

	err = req.Dial(cfg.Endpoint)
	if err != nil {
		return errors.Wrapf(err, "client: could not dial %q", cfg.Endpoint)
	}
	log.WithField("endpoint", cfg.Endpoint).Debug("dialed")

	err = Loop(ctx, req, cfg, out)
	if err != nil {
		return err
	}
	log.WithField("requests", cfg.Requests).Debug("done")
	return nil
}

// Loop sends cfg.Requests requests, one at a time, waiting for the reply
// of each request before sending the next one.
func Loop(ctx context.Context, req Requester, cfg Config, out io.Writer) error {
	for i := 0; i < cfg.Requests; i++ {
		fmt.Fprintf(out, "Sending request %d...\n", i)

		err := req.SendContext(ctx, datalink.NewMsg(cfg.Payload))
		if err != nil {
			return errors.Wrapf(err, "client: could not send request %d", i)
		}

		rep, err := req.RecvContext(ctx)
		if err != nil {
			return errors.Wrapf(err, "client: could not receive reply %d", i)
		}

		fmt.Fprintf(out, "Received reply %d [ %s ]\n", i, rep.Bytes())
	}
	return nil
}
