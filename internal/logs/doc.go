// Package logs reads back the JSON log file written by the logging package.
//
// Every CLI invocation tags its lines with a run id, so the helpers here
// group the file by run and return the last N lines that match a filter
// (run, component, minimum level). Reads are single pass with a bounded ring
// buffer, so large log files do not need to fit in memory.
package logs
