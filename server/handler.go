// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"fmt"

	"github.com/go-zeromq/datalink/sensor/mpl3115a2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Handler computes the reply to a request.
type Handler interface {
	Reply(ctx context.Context, req []byte) ([]byte, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req []byte) ([]byte, error)

// Reply calls f(ctx, req).
func (f HandlerFunc) Reply(ctx context.Context, req []byte) ([]byte, error) {
	return f(ctx, req)
}

// Echo returns a handler replying with the request prefixed by prefix.
func Echo(prefix string) Handler {
	return HandlerFunc(func(_ context.Context, req []byte) ([]byte, error) {
		rep := make([]byte, 0, len(prefix)+len(req))
		rep = append(rep, prefix...)
		rep = append(rep, req...)
		return rep, nil
	})
}

// AltitudeReader reads the altitude and temperature from an altimeter.
type AltitudeReader interface {
	Altitude(ctx context.Context) (mpl3115a2.Data, error)
}

// Altimeter returns a handler replying with the current temperature and
// altitude read from dev. The request content is ignored.
func Altimeter(dev AltitudeReader) Handler {
	log := logrus.WithField("process", "server")
	return HandlerFunc(func(ctx context.Context, _ []byte) ([]byte, error) {
		data, err := dev.Altitude(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "could not read altitude")
		}
		log.WithFields(logrus.Fields{
			"temperature": data.Temperature,
			"altitude":    data.Altitude,
		}).Infof("Temperature: %g (C) Altitude: %g (m)", data.Temperature, data.Altitude)

		return []byte(fmt.Sprintf("Temperature: %g Altitude: %g", data.Temperature, data.Altitude)), nil
	})
}
