// Package metastore keeps a metadata table in a SQLite index.
//
// Importing a JSON, JSONL, or CSV table replaces the indexed rows in one
// transaction while holding an advisory file lock, so concurrent imports do
// not interleave. Rows keep their file order, which head-sampling depends on.
// ReadTable lets callers open any supported metadata format through one entry
// point.
package metastore
