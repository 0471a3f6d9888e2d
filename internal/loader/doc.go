// Package loader turns a dataset into a stream of collated batches.
//
// Each epoch the row order is optionally shuffled, cut into batches, and
// handed to a pool of workers. Every worker owns a *rand.Rand seeded from the
// loader seed and its worker number; Options.WorkerInit is called with that
// generator when the worker starts so callers can reseed or record it.
// Batches reach the callback in epoch order regardless of which worker built
// them. The first error from a worker or the callback cancels the epoch and is
// returned; nothing is retried.
package loader
