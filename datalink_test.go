// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datalink_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	bkg = context.Background()
)

func must(str string, err error) string {
	if err != nil {
		panic(err)
	}
	return str
}

// EndPoint returns a fresh end-point for the given transport.
func EndPoint(transport string) (string, error) {
	switch transport {
	case "tcp":
		port, err := getTCPPort()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("tcp://127.0.0.1:%s", port), nil
	case "ipc":
		name := filepath.Join(os.TempDir(), "datalink-"+uuid.New().String()[:8]+".sock")
		return "ipc://" + name, nil
	case "inproc":
		return "inproc://datalink-" + uuid.New().String(), nil
	default:
		panic("invalid transport [" + transport + "]")
	}
}

func getTCPPort() (string, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return "", err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return "", err
	}
	defer l.Close()
	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port), nil
}

func cleanUp(ep string) {
	switch {
	case strings.HasPrefix(ep, "ipc://"):
		os.Remove(ep[len("ipc://"):])
	}
}
