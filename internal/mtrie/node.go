// Package mtrie implements the stride-6 multiway trie that the Poptrie
// compiler walks breadth-first to produce the flat N/L/D arrays.
//
// A node's shape mirrors github.com/gaissmai/bart's bartNode: a
// popcount-friendly occupancy bitset sits alongside a plain array of
// children, so the compiler can iterate "which of the 64 slots are
// actually used" without scanning all 64 every time.
package mtrie

import "github.com/bits-and-blooms/bitset"

const (
	// Stride is the number of address bits consumed per trie level.
	Stride = 6

	// StrideSize is the branching factor of a single level, 2^Stride.
	StrideSize = 1 << Stride

	// MaxDepth is the maximum number of internal levels for a 32-bit
	// address, ceil(32/Stride).
	MaxDepth = (32 + Stride - 1) / Stride
)

// Node is one level of the multiway trie. Leaf nodes carry prefix
// metadata (FIBIndex, IP, PrefixLen, PrefixValue, Level) and no live
// children; internal nodes carry Level and PrefixValue too — the
// Poptrie compiler needs both to decide direct-pointing placement
// regardless of whether the child at a given level.Level == s turns
// out to be a leaf or another internal node.
type Node struct {
	Children [StrideSize]*Node
	occupied *bitset.BitSet

	Leaf bool

	// FIBIndex and IP are meaningful only when Leaf is true.
	FIBIndex uint32
	IP       uint32
	PrefixLen uint8

	// PrefixValue and Level are set on every node, leaf or internal:
	// PrefixValue is extract(ip, 0, Level), the address bits consumed
	// to reach this node; Level is the stride boundary at which the
	// node was created (always a multiple of Stride).
	PrefixValue uint32
	Level       uint8
}

func newInternal(level uint8, prefixValue uint32) *Node {
	return &Node{
		occupied:    bitset.New(StrideSize),
		Level:       level,
		PrefixValue: prefixValue,
	}
}

func newLeaf(ip uint32, prefixLen uint8, fibIndex uint32, level uint8, prefixValue uint32) *Node {
	return &Node{
		Leaf:        true,
		FIBIndex:    fibIndex,
		IP:          ip,
		PrefixLen:   prefixLen,
		PrefixValue: prefixValue,
		Level:       level,
	}
}

// setChild installs child at slot idx and records the slot as
// occupied. Only valid on internal nodes.
func (n *Node) setChild(idx uint8, child *Node) {
	n.Children[idx] = child
	n.occupied.Set(uint(idx))
}

// resetInternal turns a leaf node into a fresh, empty internal node in
// place, preserving its identity (the pointer already installed in the
// parent's Children array) rather than allocating a new one and
// re-installing it.
func (n *Node) resetInternal(level uint8, prefixValue uint32) {
	*n = *newInternal(level, prefixValue)
}

// ChildSlots appends the occupied child indices of n, in ascending
// order, to buf and returns the resulting slice. Mirrors the
// buffer-reuse shape of bart's Array256.AsSlice: callers doing a
// breadth-first walk pass the same backing array on every node to
// avoid an allocation per node.
func (n *Node) ChildSlots(buf *[StrideSize]uint8) []uint8 {
	out := buf[:0]
	for i, ok := n.occupied.NextSet(0); ok; i, ok = n.occupied.NextSet(i + 1) {
		out = append(out, uint8(i))
	}
	return out
}
