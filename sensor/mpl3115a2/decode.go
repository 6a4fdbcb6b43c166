// Copyright 2020 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mpl3115a2

// decodeAltitude decodes OUT_P_MSB/CSB/LSB in altimeter mode:
// a signed Q16.4 number of meters, left-aligned in 20 bits.
func decodeAltitude(msb, csb, lsb byte) float64 {
	v := int32(int16(uint16(msb)<<8|uint16(csb)))<<4 | int32(lsb>>4)
	return float64(v) / 16
}

// decodePressure decodes OUT_P_MSB/CSB/LSB in barometer mode:
// an unsigned Q18.2 number of Pascals, left-aligned in 20 bits.
func decodePressure(msb, csb, lsb byte) float64 {
	v := uint32(msb)<<10 | uint32(csb)<<2 | uint32(lsb>>6)
	return float64(v) + float64((lsb>>4)&0x03)/4
}

// decodeTemperature decodes OUT_T_MSB/LSB:
// a signed Q8.4 number of degrees Celsius, left-aligned in 12 bits.
func decodeTemperature(msb, lsb byte) float64 {
	v := int16(uint16(msb)<<8|uint16(lsb)) >> 4
	return float64(v) / 16
}
