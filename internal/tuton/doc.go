// Package tuton holds the progress engine: deadline resolution, progress
// aggregation, due-soon ranking, reminder lifecycle rules and the payload
// normalizer used when summaries are read back from a cache.
//
// Every function here is pure. Callers pass the current time explicitly and
// operate on snapshots loaded by the repository layer, so the functions are
// safe for concurrent use.
package tuton
