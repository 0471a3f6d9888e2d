// Package main hosts the vidbunch CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, builds datasets and frame
// sources from it, and exposes inspection, sampling, batch loading, channel
// statistics, metadata preprocessing, and SQLite indexing as subcommands.
// Every invocation logs under a fresh run id.
//
// Keep this package lean: new behaviour belongs in the internal packages and
// is surfaced here through a dedicated command or flag.
package main
