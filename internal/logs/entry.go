package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"vidbunch/internal/logging"
)

// Entry is one decoded log line.
type Entry struct {
	Time      time.Time
	Level     slog.Level
	Message   string
	Component string
	RunID     string
	Fields    map[string]any
}

// ParseEntry decodes a JSON log line. Lines that are not JSON objects are
// reported as not ok.
func ParseEntry(line []byte) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return Entry{}, false
	}
	e := Entry{Fields: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "ts", slog.TimeKey:
			if s, ok := value.(string); ok {
				e.Time, _ = time.Parse(time.RFC3339, s)
			}
		case slog.LevelKey:
			if s, ok := value.(string); ok {
				e.Level = logging.ParseLevel(s)
			}
		case slog.MessageKey:
			e.Message, _ = value.(string)
		case logging.FieldComponent:
			e.Component, _ = value.(string)
		case logging.FieldRunID:
			e.RunID, _ = value.(string)
		case slog.SourceKey:
		default:
			e.Fields[key] = value
		}
	}
	return e, true
}

// String renders e in the console layout "ts LEVEL component: msg k=v".
func (e Entry) String() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	b.WriteString(strings.ToUpper(e.Level.String()))
	b.WriteByte(' ')
	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	for _, key := range slices.Sorted(maps.Keys(e.Fields)) {
		fmt.Fprintf(&b, " %s=%v", key, e.Fields[key])
	}
	return b.String()
}
