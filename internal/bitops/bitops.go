// Package bitops implements the fixed-width bit-field extraction and
// popcount helpers shared by the multiway trie builder and the Poptrie
// compiler and lookup paths.
//
// Studied the shape of github.com/gaissmai/bart's internal/bitset
// package: small, dependency-free, math/bits on the hot path, a
// precomputed table instead of a runtime branch where one is needed.
package bitops

import "math/bits"

// Extract returns the integer whose bits are the length bits of key
// starting offset bits from the most significant end (bit 31 of a
// 32-bit address).
//
// key is treated as occupying the high 32 bits of a 64-bit word whose
// low 32 bits are zero. That convention — rather than a strict 32-bit
// shift — is what keeps Extract well-defined when offset+length runs
// past 32, which happens at every read of the last stride level: a stride of 6 does not evenly
// divide 32, so the last internal level only has 2 real address bits
// and reads into the zero-padded tail. A shift computed purely against
// a 32-bit width goes negative there and wraps into nonsense.
func Extract(key uint32, offset, length uint8) uint32 {
	packed := uint64(key) << 32
	shift := 64 - uint(length) - uint(offset)
	mask := (uint64(1)<<length - 1) << shift
	return uint32((packed & mask) >> shift)
}

// inclusiveMask64 holds, for each v in [0,63], the bitmask with bits
// 0..v set. Precomputed so the lookup hot path never has to special
// case v==63, where a naive (2<<v)-1 would overflow a uint64 shift.
var inclusiveMask64 [64]uint64

func init() {
	for v := range inclusiveMask64 {
		if v == 63 {
			inclusiveMask64[v] = ^uint64(0)
			continue
		}
		inclusiveMask64[v] = uint64(1)<<(v+1) - 1
	}
}

// PopcountInclusive returns the number of set bits in vector at
// position v or below, i.e. popcount(vector & maskOf(0..v)).
func PopcountInclusive(vector uint64, v uint8) int {
	return bits.OnesCount64(vector & inclusiveMask64[v])
}

// MaskToPrefixLen zeroes every bit of ip beyond the first prefixLen
// bits (the host portion of a CIDR prefix). The multiway trie builder
// relies on host bits being zero: prefix-expansion arithmetic throughout
// insert/holepunch composes stride-relative extractions additively, which
// is only correct when the bits past prefixLen are already zero.
// Real-world CIDR tables are canonical, but this makes the invariant
// structural instead of assumed.
func MaskToPrefixLen(ip uint32, prefixLen uint8) uint32 {
	if prefixLen == 0 {
		return 0
	}
	if prefixLen >= 32 {
		return ip
	}
	return ip & (^uint32(0) << (32 - prefixLen))
}
