// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package util

import "math/bits"

// PopCount32 returns the number of set bits in x.
func PopCount32(x uint32) int {
	return bits.OnesCount32(x)
}

// PopCount64 returns the number of set bits in x.
func PopCount64(x uint64) int {
	return bits.OnesCount64(x)
}

// PopCount64Slice returns the number of set bits across all words in s.
func PopCount64Slice(s []uint64) int {
	n := 0
	for _, x := range s {
		n += bits.OnesCount64(x)
	}
	return n
}
