// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datalink

import (
	"strings"

	"github.com/go-zeromq/datalink/transport"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// endpoint is a parsed <transport>://<address> end-point.
type endpoint struct {
	name    string // as given by the user
	network string // transport scheme
	addr    string // address, as understood by trans
	trans   transport.Transport
}

// parseEndpoint splits ep into its transport and address and resolves the
// address with the transport.
func parseEndpoint(ep string) (*endpoint, error) {
	network, addr, ok := strings.Cut(ep, "://")
	if !ok || network == "" || addr == "" || strings.Contains(addr, "://") {
		return nil, errors.Wrapf(errInvalidAddress, "%q", ep)
	}

	trans, err := transports.lookup(network)
	if err != nil {
		return nil, err
	}

	addr, err = trans.Addr(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "datalink: invalid %s address in %q", network, ep)
	}
	return &endpoint{name: ep, network: network, addr: addr, trans: trans}, nil
}

func newUUID() string {
	return uuid.New().String()
}
