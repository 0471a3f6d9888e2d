package logs

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
)

const maxLineSize = 1024 * 1024

// Filter selects log entries. Zero fields match everything.
type Filter struct {
	RunID     string
	Component string
	MinLevel  slog.Leveler
}

func (f Filter) match(e Entry) bool {
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.Component != "" && e.Component != f.Component {
		return false
	}
	return f.MinLevel == nil || e.Level >= f.MinLevel.Level()
}

// TailOptions configures Tail.
type TailOptions struct {
	// Limit is the number of trailing matches returned; zero returns all.
	Limit  int
	Filter Filter
}

// Tail returns the last opts.Limit entries of the log at path that match
// opts.Filter, oldest first. A missing file yields no entries.
func Tail(path string, opts TailOptions) ([]Entry, error) {
	var (
		ring  []Entry
		idx   int
		count int
	)
	if opts.Limit > 0 {
		ring = make([]Entry, opts.Limit)
	}
	err := scan(path, func(e Entry) {
		if !opts.Filter.match(e) {
			return
		}
		if opts.Limit <= 0 {
			ring = append(ring, e)
			return
		}
		ring[idx] = e
		idx = (idx + 1) % opts.Limit
		if count < opts.Limit {
			count++
		}
	})
	if err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		return ring, nil
	}
	out := make([]Entry, count)
	if count == opts.Limit {
		for i := range count {
			out[i] = ring[(idx+i)%opts.Limit]
		}
	} else {
		copy(out, ring[:count])
	}
	return out, nil
}

// Run summarizes the lines one CLI invocation wrote.
type Run struct {
	RunID    string
	Start    time.Time
	End      time.Time
	Lines    int
	Warnings int
	Errors   int
}

// Runs lists every run id in the log at path in order of first appearance.
// Lines without a run id are skipped.
func Runs(path string) ([]Run, error) {
	var runs []Run
	index := make(map[string]int)
	err := scan(path, func(e Entry) {
		if e.RunID == "" {
			return
		}
		i, ok := index[e.RunID]
		if !ok {
			i = len(runs)
			index[e.RunID] = i
			runs = append(runs, Run{RunID: e.RunID, Start: e.Time})
		}
		r := &runs[i]
		r.Lines++
		if e.Time.After(r.End) {
			r.End = e.Time
		}
		switch {
		case e.Level >= slog.LevelError:
			r.Errors++
		case e.Level >= slog.LevelWarn:
			r.Warnings++
		}
	})
	return runs, err
}

func scan(path string, fn func(Entry)) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("log path %q is a directory", path)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if e, ok := ParseEntry(scanner.Bytes()); ok {
			fn(e)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}
	return nil
}
