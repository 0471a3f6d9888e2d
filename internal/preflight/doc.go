// Package preflight provides readiness checks for the filesystem paths and
// external binaries a vidbunch run depends on.
//
// The CLI "check" command prints every result; commands that read data call
// RunAll first and stop on the first failure so a missing root directory is
// reported before any worker starts.
package preflight
