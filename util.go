// Copyright © 2024 Ember Engine Contributors
// Use is governed by a BSD-style license found in the LICENSE file.

package ember

// util.go collects the small little-endian byte-reading helpers shared by
// mesh.go and the load package's binary-container parsing (§4.9), where
// attribute and accessor data always arrives as packed little-endian
// bytes regardless of host architecture.

import "math"

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func le32f(b []byte) float32 {
	return math.Float32frombits(le32(b))
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putLE32f(b []byte, v float32) {
	putLE32(b, math.Float32bits(v))
}
