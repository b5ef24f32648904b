package bitops

import (
	"math/bits"
	"testing"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		key            uint32
		offset, length uint8
		want           uint32
	}{
		{"full-msb-octet", 0xC0A80101, 0, 8, 0xC0},
		{"stride-at-6", 0xC0A80101, 0, 6, 0x30}, // top 6 bits of 1100_0000...
		{"zero-offset-zero-key", 0, 0, 6, 0},
		{"tail-past-32-reads-zero-padding", 0xFFFFFFFF, 30, 6, 0x30}, // bits 30,31 set, 32..35 are padding zero
		{"exact-32-width", 0xABCD1234, 0, 32, 0xABCD1234},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Extract(tc.key, tc.offset, tc.length); got != tc.want {
				t.Fatalf("Extract(%#x, %d, %d) = %#x, want %#x", tc.key, tc.offset, tc.length, got, tc.want)
			}
		})
	}
}

func TestPopcountInclusive(t *testing.T) {
	t.Parallel()

	vector := uint64(0b1010_1010_1010)
	for v := uint8(0); v < 64; v++ {
		want := bits.OnesCount64(vector & (^uint64(0) >> (63 - v)))
		if got := PopcountInclusive(vector, v); got != want {
			t.Fatalf("PopcountInclusive(%b, %d) = %d, want %d", vector, v, got, want)
		}
	}
}

func TestMaskToPrefixLen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ip        uint32
		prefixLen uint8
		want      uint32
	}{
		{"default-route", 0x0A010203, 0, 0},
		{"host-route", 0x0A010203, 32, 0x0A010203},
		{"slash-8", 0x0A010203, 8, 0x0A000000},
		{"slash-7-non-aligned", 0x0A000000, 7, 0x0A000000},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := MaskToPrefixLen(tc.ip, tc.prefixLen); got != tc.want {
				t.Fatalf("MaskToPrefixLen(%#x, %d) = %#x, want %#x", tc.ip, tc.prefixLen, got, tc.want)
			}
		})
	}
}
