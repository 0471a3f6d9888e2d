package meta

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"vidbunch/internal/vberr"
)

// Field names recognised in metadata sources.
const (
	FieldID         = "id"
	FieldLabel      = "label"
	FieldTemplate   = "template"
	FieldLID        = "lid"
	FieldTemplateID = "template_id"
	FieldPath       = "path"
	FieldLength     = "length"
	FieldHeight     = "height"
	FieldWidth      = "width"
	FieldFramerate  = "framerate"
)

// Columns lists the canonical column order used when writing tables.
var Columns = []string{FieldID, FieldLabel, FieldLID, FieldPath, FieldLength, FieldHeight, FieldWidth, FieldFramerate}

// VideoMeta is the immutable description of one clip.
type VideoMeta struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	LID       int    `json:"lid"`
	Path      string `json:"path"`
	Length    int    `json:"length"`
	Height    int    `json:"height"`
	Width     int    `json:"width"`
	Framerate int    `json:"framerate"`
}

func (m VideoMeta) String() string {
	return fmt.Sprintf("%s (%d %s) %d frames", m.ID, m.LID, m.Label, m.Length)
}

// Table is an ordered collection of clip metadata.
type Table []VideoMeta

// Len returns the number of rows.
func (t Table) Len() int { return len(t) }

// ClassCounts returns the number of rows per class id.
func (t Table) ClassCounts() map[int]int {
	counts := make(map[int]int)
	for _, row := range t {
		counts[row.LID]++
	}
	return counts
}

// FromFields builds a VideoMeta from a loosely typed record. Values may be
// strings (CSV), json.Number, float64, or integer types. row is only used in
// error messages.
func FromFields(fields map[string]any, row int) (VideoMeta, error) {
	var m VideoMeta
	var err error

	id, ok := lookup(fields, FieldID)
	if !ok {
		return m, missing(row, FieldID)
	}
	if m.ID, err = toString(id); err != nil {
		return m, invalid(row, FieldID, err)
	}

	label, ok := lookup(fields, FieldLabel, FieldTemplate)
	if !ok {
		return m, missing(row, FieldLabel)
	}
	if m.Label, err = toString(label); err != nil {
		return m, invalid(row, FieldLabel, err)
	}

	lid, ok := lookup(fields, FieldLID, FieldTemplateID)
	if !ok {
		return m, missing(row, FieldLID)
	}
	if m.LID, err = toInt(lid); err != nil {
		return m, invalid(row, FieldLID, err)
	}

	length, ok := lookup(fields, FieldLength)
	if !ok {
		return m, missing(row, FieldLength)
	}
	if m.Length, err = toInt(length); err != nil {
		return m, invalid(row, FieldLength, err)
	}
	if m.Length < 0 {
		return m, invalid(row, FieldLength, fmt.Errorf("negative length %d", m.Length))
	}

	m.Path = m.ID
	if path, ok := lookup(fields, FieldPath); ok {
		if m.Path, err = toString(path); err != nil {
			return m, invalid(row, FieldPath, err)
		}
	}

	optional := []struct {
		key string
		dst *int
	}{
		{FieldHeight, &m.Height},
		{FieldWidth, &m.Width},
		{FieldFramerate, &m.Framerate},
	}
	for _, opt := range optional {
		value, ok := lookup(fields, opt.key)
		if !ok {
			continue
		}
		if *opt.dst, err = toInt(value); err != nil {
			return m, invalid(row, opt.key, err)
		}
	}
	return m, nil
}

// Fields renders the record with canonical column names.
func (m VideoMeta) Fields() map[string]any {
	return map[string]any{
		FieldID:        m.ID,
		FieldLabel:     m.Label,
		FieldLID:       m.LID,
		FieldPath:      m.Path,
		FieldLength:    m.Length,
		FieldHeight:    m.Height,
		FieldWidth:     m.Width,
		FieldFramerate: m.Framerate,
	}
}

func lookup(fields map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		value, ok := fields[key]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return value, true
	}
	return nil, false
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("unsupported type %T", value)
	}
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("non-integer value %v", v)
		}
		return int(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return toInt(f)
	case string:
		trimmed := strings.TrimSpace(v)
		if i, err := strconv.Atoi(trimmed); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", v, err)
		}
		return toInt(f)
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

func missing(row int, field string) error {
	return vberr.Wrap(vberr.ErrConfiguration, "meta", "read", fmt.Sprintf("row %d: missing field %q", row, field), nil)
}

func invalid(row int, field string, err error) error {
	return vberr.Wrap(vberr.ErrConfiguration, "meta", "read", fmt.Sprintf("row %d: invalid field %q", row, field), err)
}
