// Package loader reads a line-oriented "prefix/len next_hop" destinations
// file into a poptrie.Builder, assigning a dense fib index to each
// distinct next-hop token in first-seen order.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"net/netip"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/netroute/poptrie/poptrie"
)

// MalformedPrefixError reports a destinations-file line that could not
// be parsed: an invalid CIDR, or a trailing token missing.
type MalformedPrefixError struct {
	Line int
	Text string
	Err  error
}

func (e *MalformedPrefixError) Error() string {
	return fmt.Sprintf("loader: line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *MalformedPrefixError) Unwrap() error { return e.Err }

// Result is the outcome of loading a destinations file: the built
// poptrie.Builder plus enough bookkeeping for the driver's correctness
// pass to replay every inserted prefix against its own recorded fib.
type Result struct {
	Builder *poptrie.Builder

	// FIBTable maps a fib index back to the next-hop token that produced
	// it, in assignment order.
	FIBTable []string

	// Prefixes records every (address, fib) pair inserted, in file
	// order, for a correctness pass to replay.
	Prefixes []InsertedPrefix
}

// InsertedPrefix is one parsed destinations-file line.
type InsertedPrefix struct {
	Addr   uint32
	Length uint8
	FIB    uint32
}

// LoadPrefixFile parses r as a destinations file: one
// "<A.B.C.D>/<len> <next_hop_token>" entry per line, blank lines
// skipped. Next-hop tokens are deduplicated into a dense fib index in
// first-seen order. Aborts on the first malformed line.
func LoadPrefixFile(r io.Reader) (*Result, error) {
	b := poptrie.New()
	fibOf := make(map[string]uint32)
	res := &Result{Builder: b}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, &MalformedPrefixError{Line: lineNo, Text: line, Err: fmt.Errorf("want 2 fields, got %d", len(fields))}
		}

		prefix, err := netip.ParsePrefix(fields[0])
		if err != nil {
			return nil, &MalformedPrefixError{Line: lineNo, Text: line, Err: err}
		}
		if !prefix.Addr().Is4() {
			return nil, &MalformedPrefixError{Line: lineNo, Text: line, Err: fmt.Errorf("not an IPv4 prefix")}
		}

		token := fields[1]
		fib, ok := fibOf[token]
		if !ok {
			fib = uint32(len(res.FIBTable))
			fibOf[token] = fib
			res.FIBTable = append(res.FIBTable, token)
		}

		addr4 := prefix.Addr().As4()
		addr := uint32(addr4[0])<<24 | uint32(addr4[1])<<16 | uint32(addr4[2])<<8 | uint32(addr4[3])
		length := uint8(prefix.Bits())

		b.Insert(addr, length, fib)
		res.Prefixes = append(res.Prefixes, InsertedPrefix{Addr: addr, Length: length, FIB: fib})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loader: read destinations file: %w", err)
	}

	log.WithField("prefixes", len(res.Prefixes)).WithField("next_hops", len(res.FIBTable)).Debug("loaded destinations file")
	return res, nil
}
