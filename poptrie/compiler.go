package poptrie

import (
	"errors"
	"fmt"

	"github.com/netroute/poptrie/internal/mtrie"
)

// ErrNoDefaultRoute is returned by Builder.BuildPoptrie when no 0.0.0.0/0
// prefix was inserted. The source leaves this case as undefined behavior
// (a lookup falling off the trie reads whatever happened to be in the
// root N-entry); this implementation refuses to build instead, since
// Lookup's hot path has no room for a per-call found/not-found branch.
var ErrNoDefaultRoute = errors.New("poptrie: build requires a 0.0.0.0/0 prefix")

// validDirectBits are the only direct-pointing widths the compiler's
// wide-fill arithmetic has been checked against; see DESIGN.md.
var validDirectBits = map[uint8]bool{0: true, 6: true, 12: true, 18: true, 24: true}

// Builder accumulates prefix/length/next-hop tuples and compiles them
// into a Poptrie. It is a thin public wrapper over the internal multiway
// trie builder: callers never see mtrie.Node pointers.
type Builder struct {
	mt *mtrie.Builder
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{mt: mtrie.New()}
}

// Insert adds a (prefix, length, next-hop) tuple. May be called any
// number of times before BuildPoptrie.
func (b *Builder) Insert(ip uint32, prefixLen uint8, fibIndex uint32) {
	b.mt.Insert(ip, prefixLen, fibIndex)
}

// BuildPoptrie compiles the accumulated trie into a Poptrie with a
// directBits-wide direct-pointing table. directBits must be one of
// 0, 6, 12, 18, 24.
func (b *Builder) BuildPoptrie(directBits uint8) (*Poptrie, error) {
	if !validDirectBits[directBits] {
		panic(fmt.Sprintf("poptrie: invalid direct-pointing width %d", directBits))
	}
	if !b.mt.HasDefaultRoute() {
		return nil, ErrNoDefaultRoute
	}
	return compile(b.mt.Root(), directBits)
}

// workItem is a compact worklist entry: the source multiway-trie node to
// process next, and the N-array slot it will fill once processed. This
// replaces the source's approach of having every Poptrie node hold a
// live back-reference to its originating multiway-trie node; here N
// entries never reference the trie, and the queue, which keeps every
// entry until compile returns, is the only place the compiler holds one.
type workItem struct {
	src   *mtrie.Node
	nSlot int
}

// compile performs the level-order sweep described for the Poptrie
// compiler: root seats N[0], every internal child discovered while
// scanning a node's slots is eagerly given its own N index (keeping
// sibling children's final indices contiguous, which is what lets base1
// alone locate all of a node's internal children), and leaves are
// run-length compacted into L as they're found.
func compile(root *mtrie.Node, s uint8) (*Poptrie, error) {
	n := make([]nEntry, 1)
	l := make([]leafEntry, 0)

	dsize := 1
	if s > 0 {
		dsize = 1 << s
	}
	d := make([]directEntry, dsize)

	queue := []workItem{{src: root, nSlot: 0}}
	var buf [mtrie.StrideSize]uint8

	for head := 0; head < len(queue); head++ {
		item := queue[head]
		entry := nEntry{base1: -1, base0: -1}

		var haveRun bool
		var currentRunFib uint32

		for _, idx := range item.src.ChildSlots(&buf) {
			child := item.src.Children[idx]

			var childNIndex int
			if child.Leaf {
				if !haveRun || child.FIBIndex != currentRunFib {
					if entry.base0 == -1 {
						entry.base0 = len(l)
					}
					l = append(l, leafEntry{fibIndex: child.FIBIndex})
					entry.leafVec |= uint64(1) << idx
					currentRunFib = child.FIBIndex
					haveRun = true
				}
			} else {
				if entry.base1 == -1 {
					entry.base1 = len(n)
				}
				childNIndex = len(n)
				n = append(n, nEntry{})
				entry.vector |= uint64(1) << idx
				queue = append(queue, workItem{src: child, nSlot: childNIndex})
			}

			populateDirect(d, s, child, childNIndex)
		}

		n[item.nSlot] = entry
	}

	if s == 0 {
		d[0] = nodeDirect(0)
	}

	return &Poptrie{n: n, l: l, d: d, s: s}, nil
}

// populateDirect fills the direct-pointing slots that child's coverage
// maps to, if any. childNIndex is only meaningful when child is internal.
func populateDirect(d []directEntry, s uint8, child *mtrie.Node, childNIndex int) {
	if s == 0 || child.Level > s {
		return
	}

	if child.Level == s {
		if child.Leaf {
			d[child.PrefixValue] = leafDirect(child.FIBIndex)
		} else {
			d[child.PrefixValue] = nodeDirect(childNIndex)
		}
		return
	}

	// child.Level < s: its coverage spans more than one D-entry. For a
	// leaf these entries are final. An internal child this shallow also
	// writes them, as a placeholder: its own children are visited later
	// in the sweep and overwrite every entry it covers, down to the
	// child.Level == s case above.
	shift := s - child.Level
	base := child.PrefixValue << shift
	for z := base; z <= base|((uint32(1)<<shift)-1); z++ {
		d[z] = leafDirect(child.FIBIndex)
	}
}
