// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"encoding/binary"
	"io"
	"net/textproto"
	"sort"
	"strings"
)

const (
	sysSockType = "Socket-Type"
	sysSockID   = "Identity"
)

// Metadata is describing a Conn's metadata information.
// Property names are case-insensitive and stored in canonical form.
type Metadata map[string]string

// Get returns the value of the named property.
func (md Metadata) Get(name string) (string, bool) {
	v, ok := md[canonical(name)]
	return v, ok
}

// Set sets the value of the named property.
func (md Metadata) Set(name, value string) {
	md[canonical(name)] = value
}

// MarshalZMTP marshals Metadata to ZMTP encoded data.
// Application properties are sent with the "X-" prefix.
func (md Metadata) MarshalZMTP() ([]byte, error) {
	names := make([]string, 0, len(md))
	seen := make(map[string]struct{}, len(md))
	for k := range md {
		if len(k) == 0 {
			return nil, errEmptyAppMDKey
		}
		key := strings.ToLower(k)
		if _, dup := seen[key]; dup {
			return nil, errDupAppMDKey
		}
		seen[key] = struct{}{}
		names = append(names, k)
	}
	sort.Strings(names)

	var buf []byte
	for _, k := range names {
		name := canonical(k)
		switch {
		case name == sysSockType, name == sysSockID, strings.HasPrefix(name, "X-"):
		default:
			name = "X-" + name
		}
		if len(name) > 255 {
			return nil, errOverflow
		}
		buf = appendProperty(buf, name, md[k])
	}
	return buf, nil
}

// UnmarshalZMTP unmarshals Metadata from a ZMTP encoded data.
func (md *Metadata) UnmarshalZMTP(p []byte) error {
	if *md == nil {
		*md = make(Metadata)
	}
	for len(p) > 0 {
		k, v, n, err := parseProperty(p)
		if err != nil {
			return err
		}
		(*md)[canonical(k)] = v
		p = p[n:]
	}
	return nil
}

// appendProperty appends the on-wire representation of a property,
// as specified by https://rfc.zeromq.org/spec:23/ZMTP/#the-metadata.
func appendProperty(buf []byte, name, value string) []byte {
	var vlen [4]byte
	binary.BigEndian.PutUint32(vlen[:], uint32(len(value)))
	buf = append(buf, byte(len(name)))
	buf = append(buf, name...)
	buf = append(buf, vlen[:]...)
	buf = append(buf, value...)
	return buf
}

func parseProperty(p []byte) (name, value string, n int, err error) {
	klen := int(p[0])
	n = 1
	if n+klen+4 > len(p) {
		return "", "", n, io.ErrUnexpectedEOF
	}
	name = string(p[n : n+klen])
	n += klen

	v := binary.BigEndian.Uint32(p[n : n+4])
	n += 4
	if uint64(v) > uint64(maxInt) {
		return "", "", n, errOverflow
	}
	vlen := int(v)
	if n+vlen > len(p) {
		return "", "", n, io.ErrUnexpectedEOF
	}
	value = string(p[n : n+vlen])
	n += vlen
	return name, value, n, nil
}

func canonical(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}
