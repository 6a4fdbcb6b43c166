// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datalink

import (
	"io"

	"github.com/sirupsen/logrus"
)

var (
	// Devnull is a logger discarding everything, for sockets under test.
	Devnull = newDevnull()
)

func newDevnull() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
