// Package poptrie compiles a built multiway trie into the flat N/L/D
// arrays of Asai and Ohara's Poptrie and answers longest-prefix-match
// lookups against them.
package poptrie

// nEntry is one slot of the internal-node array N. vector marks which of
// a node's 64 stride slots descend into another internal node; leafVec
// marks the first slot of each maximal run of identical next-hop
// leaves (not every populated slot — see Lookup).
type nEntry struct {
	vector  uint64
	leafVec uint64
	base1   int
	base0   int
}

// leafEntry is one slot of the leaf array L. Consecutive stride slots
// sharing a fib index are compacted into a single leafEntry.
type leafEntry struct {
	fibIndex uint32
}

// directTag marks a directEntry as a resolved leaf rather than an index
// into N, mirroring the high-bit tag the source uses on its direct_index
// field. fib indices are assumed to never reach 1<<31.
const directTag = uint32(1) << 31

// directEntry is one slot of the direct-pointing array D.
type directEntry struct {
	value uint32
}

func leafDirect(fibIndex uint32) directEntry { return directEntry{value: directTag | fibIndex} }
func nodeDirect(nIndex int) directEntry      { return directEntry{value: uint32(nIndex)} }

func (d directEntry) isLeaf() bool     { return d.value&directTag != 0 }
func (d directEntry) fibIndex() uint32 { return d.value &^ directTag }
func (d directEntry) nIndex() int      { return int(d.value) }

// Poptrie is the compiled, immutable lookup structure. Once built it is
// safe for concurrent read-only use by any number of goroutines.
type Poptrie struct {
	n []nEntry
	l []leafEntry
	d []directEntry
	s uint8
}

// InternalNodeCount returns len(N).
func (p *Poptrie) InternalNodeCount() int { return len(p.n) }

// LeafCount returns len(L).
func (p *Poptrie) LeafCount() int { return len(p.l) }

// DirectPointingBits returns the build-time direct-pointing parameter s.
func (p *Poptrie) DirectPointingBits() uint8 { return p.s }

// Stats is a diagnostic snapshot of a compiled Poptrie's shape.
type Stats struct {
	InternalNodes int
	Leaves        int
	DirectEntries int
	DirectBits    uint8
}

// Stats returns a snapshot of p's array sizes, for startup logging.
func (p *Poptrie) Stats() Stats {
	return Stats{
		InternalNodes: len(p.n),
		Leaves:        len(p.l),
		DirectEntries: len(p.d),
		DirectBits:    p.s,
	}
}
