// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inproc

import (
	"context"
	"net"
	"strings"

	"github.com/go-zeromq/datalink/transport"
	"github.com/pkg/errors"
)

// Transport connects sockets of the same process through named in-memory
// pipes. The dialer is not used.
type Transport struct{}

func (Transport) Dial(ctx context.Context, _ transport.Dialer, name string) (net.Conn, error) {
	return DialContext(ctx, name)
}

func (Transport) Listen(_ context.Context, name string) (net.Listener, error) {
	return Listen(name)
}

// Addr checks the end-point name is not blank. Names are used verbatim.
func (Transport) Addr(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("inproc: empty end-point name")
	}
	return name, nil
}

var _ transport.Transport = Transport{}
