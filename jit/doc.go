// Package jit provides the tiered-execution engine core for the emulator:
// hotness profiling, the compiled-block cache with self-modifying-code
// staleness detection, and the runtime that ties them together.
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - profile.go: hotness counters and the compile-worthiness decision
//   - cache.go: compiled-block cache and the page-version staleness model
//   - runtime.go: the per-block-entry lookup protocol and statistics
//
// # Architecture
//
// The Runtime is a plain stateful object constructed with two injected
// capabilities:
//   - CompileRequestSink: receives fire-and-forget compile requests
//     (CompileQueue in queue.go is the provided de-duping FIFO sink)
//   - Backend: executes previously installed compiled artifacts, addressed
//     by an opaque artifact-table index the cache never inspects
//
// The execution loop calls Runtime.PrepareBlock on every guest basic-block
// entry. A fresh cache hit returns the artifact index for the Backend; a
// miss falls back to the interpreter while the hotness profile decides
// whether the address is worth compiling. An asynchronous compiler installs
// finished artifacts via Runtime.InstallHandle, and the memory subsystem
// advances page versions via Runtime.OnGuestWrite so compiled code is never
// served after the guest bytes producing it changed.
//
// Dispatcher (dispatch.go) is the tiered Tier-0/Tier-1 step loop built on
// top of the Runtime; WriteLog (writelog.go) batches guest stores into the
// page-version tracker.
//
// The Runtime performs no internal locking. The embedder is responsible for
// synchronization if it is shared across execution contexts.
package jit
