// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datalink

import (
	"sort"
	"sync"

	"github.com/go-zeromq/datalink/internal/inproc"
	"github.com/go-zeromq/datalink/transport"
	"github.com/pkg/errors"
)

// Transports returns the sorted names of the registered transports,
// the schemes accepted in end-points.
func Transports() []string {
	return transports.list()
}

// RegisterTransport makes trans available for end-points of the form
// name://address. A name can only be registered once.
func RegisterTransport(name string, trans transport.Transport) error {
	return transports.register(name, trans)
}

// registry maps end-point schemes to transports.
type registry struct {
	mu     sync.RWMutex
	byName map[string]transport.Transport
}

var transports = registry{
	byName: make(map[string]transport.Transport),
}

func (reg *registry) lookup(name string) (transport.Transport, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	trans, ok := reg.byName[name]
	if !ok {
		return nil, errors.Errorf("datalink: unknown transport %q", name)
	}
	return trans, nil
}

func (reg *registry) register(name string, trans transport.Transport) error {
	if name == "" || trans == nil {
		return errors.Errorf("datalink: invalid transport registration (name=%q)", name)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if old, dup := reg.byName[name]; dup {
		return errors.Errorf("datalink: duplicate transport %q (%T)", name, old)
	}
	reg.byName[name] = trans
	return nil
}

func (reg *registry) unregister(name string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.byName, name)
}

func (reg *registry) list() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	names := make([]string, 0, len(reg.byName))
	for name := range reg.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	for _, builtin := range []struct {
		name  string
		trans transport.Transport
	}{
		{"ipc", transport.New("unix")},
		{"tcp", transport.New("tcp")},
		{"inproc", inproc.Transport{}},
	} {
		if err := transports.register(builtin.name, builtin.trans); err != nil {
			panic(errors.Wrap(err, "datalink: could not register builtin transport"))
		}
	}
}
