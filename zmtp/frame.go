// Copyright 2018 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zmtp

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

type flag byte

func (fl flag) hasMore() bool   { return fl&hasMoreBitFlag == hasMoreBitFlag }
func (fl flag) isLong() bool    { return fl&isLongBitFlag == isLongBitFlag }
func (fl flag) isCommand() bool { return fl&isCommandBitFlag == isCommandBitFlag }

// frameHeader returns the on-wire header for a frame of the given size.
func frameHeader(isCommand, more bool, size int) []byte {
	var fl byte
	if more {
		fl |= hasMoreBitFlag
	}
	if isCommand {
		fl |= isCommandBitFlag
	}

	if size > 255 {
		hdr := make([]byte, 9)
		hdr[0] = fl | isLongBitFlag
		binary.BigEndian.PutUint64(hdr[1:], uint64(size))
		return hdr
	}
	return []byte{fl, uint8(size)}
}

// readFrame reads one frame (header and body) from r.
// Frames larger than limit bytes are rejected before their body is read.
func readFrame(r io.Reader, limit int64) (flag, []byte, error) {
	var hdr [9]byte
	if _, err := io.ReadFull(r, hdr[:2]); err != nil {
		return 0, nil, err
	}

	fl := flag(hdr[0])
	size := uint64(hdr[1])
	if fl.isLong() {
		// the first byte of the 8-byte size was read along with the flag.
		if _, err := io.ReadFull(r, hdr[2:]); err != nil {
			return fl, nil, err
		}
		size = binary.BigEndian.Uint64(hdr[1:])
	}

	if limit < 0 {
		limit = 0
	}
	if size > uint64(limit) || size > uint64(maxInt) {
		return fl, nil, errors.Wrapf(errOverflow, "zmtp: frame of %d bytes exceeds limit of %d bytes", size, limit)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return fl, nil, err
	}
	return fl, body, nil
}
