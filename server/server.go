// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package server implements the data server: a REP socket answering each
// request through a Handler.
package server

import (
	"context"
	"net"
	"sync"

	"github.com/go-zeromq/datalink"
	"github.com/go-zeromq/datalink/internal/errgroup"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// errorPrefix starts the reply sent when a handler fails.
const errorPrefix = "ERROR: "

// Option configures a Server.
type Option func(srv *Server)

// WithRateLimit limits the rate at which requests are handled.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(srv *Server) {
		srv.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithMaxRequests stops the server after n replies.
// A value of zero or less means no limit.
func WithMaxRequests(n int) Option {
	return func(srv *Server) {
		srv.max = n
	}
}

// WithLogger sets the logger of the server and of its socket.
func WithLogger(log *logrus.Entry) Option {
	return func(srv *Server) {
		srv.log = log
	}
}

// WithSocketOptions configures the REP socket of the server.
func WithSocketOptions(opts ...datalink.Option) Option {
	return func(srv *Server) {
		srv.sopts = append(srv.sopts, opts...)
	}
}

// Server answers requests received on an endpoint.
type Server struct {
	ep      string
	h       Handler
	log     *logrus.Entry
	limiter *rate.Limiter
	max     int
	sopts   []datalink.Option

	mu   sync.Mutex
	addr net.Addr
}

// New returns a server answering requests received on ep with h.
func New(ep string, h Handler, opts ...Option) *Server {
	srv := &Server{
		ep:  ep,
		h:   h,
		log: logrus.WithField("process", "server"),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Addr returns the address the server listens on, or nil if it is not
// listening.
func (srv *Server) Addr() net.Addr {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.addr
}

// ListenAndServe listens on the server endpoint and answers requests until
// ctx is cancelled or the request budget is exhausted.
// Cancellation of ctx is a clean shutdown and returns nil.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	opts := append([]datalink.Option{datalink.WithLogger(srv.log)}, srv.sopts...)
	sck := datalink.NewRep(ctx, opts...)
	defer sck.Close()

	err := sck.Listen(srv.ep)
	if err != nil {
		return errors.Wrapf(err, "server: could not listen on %q", srv.ep)
	}
	srv.setAddr(sck.Addr())
	defer srv.setAddr(nil)
	srv.log.WithField("endpoint", srv.ep).Info("listening")

	grp, _ := errgroup.WithContext(ctx)
	grp.Go(func(ctx context.Context) error {
		return srv.serve(ctx, sck)
	})

	err = grp.Wait()
	if ctx.Err() != nil {
		srv.log.Info("shutting down")
		return nil
	}
	return err
}

func (srv *Server) serve(ctx context.Context, sck datalink.Socket) error {
	for n := 0; srv.max <= 0 || n < srv.max; n++ {
		req, err := sck.RecvContext(ctx)
		if err != nil {
			return errors.Wrap(err, "server: could not receive request")
		}
		srv.log.Info("Received request from client")

		if srv.limiter != nil {
			if err := srv.limiter.Wait(ctx); err != nil {
				return errors.Wrap(err, "server: rate limiter")
			}
		}

		rep, err := srv.h.Reply(ctx, req.Bytes())
		if err != nil {
			srv.log.WithError(err).Warn("could not handle request")
			rep = []byte(errorPrefix + err.Error())
		}

		err = sck.SendContext(ctx, datalink.NewMsg(rep))
		switch {
		case err == nil:
		case errors.Is(err, datalink.ErrConnectionUnavailable):
			srv.log.WithError(err).Warn("could not send reply")
		default:
			return errors.Wrap(err, "server: could not send reply")
		}
	}

	srv.log.WithField("requests", srv.max).Info("request budget exhausted")
	return nil
}

func (srv *Server) setAddr(addr net.Addr) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.addr = addr
}
