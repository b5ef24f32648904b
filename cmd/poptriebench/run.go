package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/netroute/poptrie/loader"
	"github.com/netroute/poptrie/poptrie"
)

func run() error {
	f, err := os.Open(datasetPath)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	setupStart := time.Now()
	loaded, err := loader.LoadPrefixFile(f)
	if err != nil {
		return fmt.Errorf("load destinations: %w", err)
	}

	pt, err := loaded.Builder.BuildPoptrie(directBits)
	if err != nil {
		return fmt.Errorf("build poptrie: %w", err)
	}
	setupElapsed := time.Since(setupStart)

	stats := pt.Stats()
	log.WithFields(log.Fields{
		"setup_ms":       setupElapsed.Milliseconds(),
		"internal_nodes": stats.InternalNodes,
		"leaves":         stats.Leaves,
		"direct_entries": stats.DirectEntries,
		"direct_bits":    stats.DirectBits,
	}).Info("poptrie built")

	correct, total := checkCorrectness(pt, loaded.Prefixes)
	pct := 100.0
	if total > 0 {
		pct = 100 * float64(correct) / float64(total)
	}
	log.WithFields(log.Fields{"correct": correct, "total": total, "percent": pct}).Info("correctness pass complete")

	return runThroughput(pt, loaded.Prefixes)
}

// checkCorrectness verifies every inserted prefix still resolves to its
// own recorded next hop. A prefix whose network address is also covered
// by a strictly longer prefix in the same file, in whatever order the two
// were inserted, is expected to fail this check; that is the ε in the
// round-trip law, not a bug.
func checkCorrectness(pt *poptrie.Poptrie, prefixes []loader.InsertedPrefix) (correct, total int) {
	for _, p := range prefixes {
		total++
		if pt.Lookup(p.Addr) == p.FIB {
			correct++
		}
	}
	return correct, total
}

// runThroughput fixes the source's worker-join bug: its thread-join loop
// was hardcoded to 4 iterations regardless of the configured thread
// count. Here an errgroup.Group is sized from workerCount directly, so
// every worker actually launched is also actually waited on.
func runThroughput(pt *poptrie.Poptrie, prefixes []loader.InsertedPrefix) error {
	if len(prefixes) == 0 {
		return fmt.Errorf("cannot measure throughput: dataset has no prefixes")
	}

	checkpoints := append([]int(nil), checkpointSec...)
	sort.Ints(checkpoints)
	maxCheckpoint := checkpoints[len(checkpoints)-1]
	deadline := time.Duration(maxCheckpoint) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	counters := make([]atomic.Uint64, workerCount)
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workerCount; w++ {
		w := w
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(w) + 1))
			perm := rng.Perm(len(prefixes))
			i := 0
			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}
				addr := prefixes[perm[i%len(perm)]].Addr
				pt.Lookup(addr)
				counters[w].Add(1)
				i++
			}
		})
	}

	reportDone := make(chan struct{})
	go reportCheckpoints(start, checkpoints, counters, reportDone)

	err := g.Wait()
	<-reportDone
	return err
}

func reportCheckpoints(start time.Time, checkpoints []int, counters []atomic.Uint64, done chan<- struct{}) {
	defer close(done)
	for _, sec := range checkpoints {
		target := start.Add(time.Duration(sec) * time.Second)
		if d := time.Until(target); d > 0 {
			time.Sleep(d)
		}
		var total uint64
		for i := range counters {
			total += counters[i].Load()
		}
		elapsed := time.Since(start).Seconds()
		log.WithFields(log.Fields{
			"checkpoint_s":     sec,
			"lookups":          total,
			"lookups_per_sec":  float64(total) / elapsed,
		}).Info("throughput checkpoint")
	}
}
