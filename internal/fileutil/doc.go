// Package fileutil holds the atomic, lock-guarded file replacement shared by
// every command that writes dataset artefacts (metadata tables, statistics).
package fileutil
