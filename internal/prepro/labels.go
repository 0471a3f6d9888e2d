package prepro

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"vidbunch/internal/vberr"
)

// Labels maps normalized template strings to class ids.
type Labels map[string]int

// NormalizeTemplate drops placeholder brackets, collapses whitespace, and
// case-folds, so "Pushing [something] left" matches "pushing something left".
func NormalizeTemplate(template string) string {
	replaced := strings.NewReplacer("[", "", "]", "").Replace(template)
	return cases.Fold().String(strings.Join(strings.Fields(replaced), " "))
}

// Lookup returns the class id of template.
func (l Labels) Lookup(template string) (int, bool) {
	id, ok := l[NormalizeTemplate(template)]
	return id, ok
}

// ReadLabels loads a labels file. Both the object form
// {"template": "id", ...} and the records form [{"template": ..., "id": ...}]
// are accepted; ids may be numbers or numeric strings.
func ReadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, vberr.Wrap(vberr.ErrConfiguration, "prepro", "read labels", path, err)
	}
	data = bytes.TrimSpace(data)
	labels := make(Labels)
	if len(data) > 0 && data[0] == '[' {
		var records []map[string]json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, vberr.Wrap(vberr.ErrConfiguration, "prepro", "read labels", path, err)
		}
		for i, rec := range records {
			var template string
			if err := json.Unmarshal(rec["template"], &template); err != nil {
				return nil, vberr.Configf("prepro", "%s: record %d: template: %v", path, i, err)
			}
			id, err := parseID(rec["id"])
			if err != nil {
				return nil, vberr.Configf("prepro", "%s: record %d: id: %v", path, i, err)
			}
			labels[NormalizeTemplate(template)] = id
		}
		return labels, nil
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		return nil, vberr.Wrap(vberr.ErrConfiguration, "prepro", "read labels", path, err)
	}
	for template, raw := range object {
		id, err := parseID(raw)
		if err != nil {
			return nil, vberr.Configf("prepro", "%s: template %q: %v", path, template, err)
		}
		labels[NormalizeTemplate(template)] = id
	}
	return labels, nil
}

func parseID(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n, nil
}
