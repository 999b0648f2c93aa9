package jit

import "fmt"

// Stats aggregates the engine's monotone protocol counters for final
// reporting. Useful for evaluating tiering effectiveness and debugging
// invalidation behavior over time.
//
// Every counter only ever increases; a snapshot is a plain value copy.
type Stats struct {
	CacheHits       uint64 // fresh compiled-block lookups served
	CacheMisses     uint64 // lookups falling back to the interpreter
	Installs        uint64 // compiled blocks accepted into the cache
	StaleInstalls   uint64 // installs rejected because their metadata aged out
	Evictions       uint64 // entries dropped to stay within CacheMaxBlocks
	Invalidations   uint64 // entries removed (lazy staleness or explicit)
	CompileRequests uint64 // requests handed to the CompileRequestSink
}

// HitRate returns the fraction of lookups served from the compiled cache.
func (s Stats) HitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total)
}

// Print displays the aggregated counters at the end of a run.
func (s Stats) Print() {
	fmt.Println("=== JIT Runtime Statistics ===")
	fmt.Printf("Cache Hits        : %d\n", s.CacheHits)
	fmt.Printf("Cache Misses      : %d\n", s.CacheMisses)
	fmt.Printf("Hit Rate          : %.2f%%\n", 100*s.HitRate())
	fmt.Printf("Installs          : %d\n", s.Installs)
	fmt.Printf("Stale Installs    : %d\n", s.StaleInstalls)
	fmt.Printf("Evictions         : %d\n", s.Evictions)
	fmt.Printf("Invalidations     : %d\n", s.Invalidations)
	fmt.Printf("Compile Requests  : %d\n", s.CompileRequests)
}
