package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"vidbunch/internal/meta"
	"vidbunch/internal/vberr"
)

type keepMode int

const (
	keepAll keepMode = iota
	keepFraction
	keepCount
)

// Keep selects which rows of the metadata table a dataset uses.
type Keep struct {
	mode     keepMode
	fraction float64
	count    int
}

// KeepAll keeps every row in file order.
func KeepAll() Keep { return Keep{} }

// KeepFraction keeps the first round(n*f) rows of each class. f = 1.0 keeps
// every row but regroups the table class by class.
func KeepFraction(f float64) Keep { return Keep{mode: keepFraction, fraction: f} }

// KeepCount keeps the first n rows regardless of class. n = 1 keeps one row.
func KeepCount(n int) Keep { return Keep{mode: keepCount, count: n} }

// ParseKeep maps a config or flag value onto a Keep. Floats select the
// stratified branch and integers the head branch; strings are parsed the same
// way, with a decimal point marking a fraction.
func ParseKeep(value any) (Keep, error) {
	var k Keep
	switch v := value.(type) {
	case nil:
		return KeepAll(), nil
	case Keep:
		k = v
	case float64:
		k = KeepFraction(v)
	case float32:
		k = KeepFraction(float64(v))
	case int:
		k = KeepCount(v)
	case int64:
		k = KeepCount(int(v))
	case int32:
		k = KeepCount(int(v))
	case uint64:
		k = KeepCount(int(v))
	case string:
		return parseKeepString(v)
	default:
		return Keep{}, vberr.Configf("dataset", "keep: unsupported type %T", value)
	}
	return k, k.Validate()
}

func parseKeepString(raw string) (Keep, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "all") || strings.EqualFold(s, "none") {
		return KeepAll(), nil
	}
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Keep{}, vberr.Wrap(vberr.ErrConfiguration, "dataset", "keep", fmt.Sprintf("invalid fraction %q", raw), err)
		}
		k := KeepFraction(f)
		return k, k.Validate()
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Keep{}, vberr.Wrap(vberr.ErrConfiguration, "dataset", "keep", fmt.Sprintf("invalid count %q", raw), err)
	}
	k := KeepCount(n)
	return k, k.Validate()
}

// Validate reports out-of-range fractions and counts.
func (k Keep) Validate() error {
	switch k.mode {
	case keepFraction:
		if math.IsNaN(k.fraction) || k.fraction < 0 || k.fraction > 1 {
			return vberr.Configf("dataset", "keep fraction must be between 0 and 1, received %v", k.fraction)
		}
	case keepCount:
		if k.count < 1 {
			return vberr.Configf("dataset", "keep count must be at least 1, received %d", k.count)
		}
	}
	return nil
}

// IsAll reports whether k keeps the table unchanged.
func (k Keep) IsAll() bool { return k.mode == keepAll }

func (k Keep) String() string {
	switch k.mode {
	case keepFraction:
		return fmt.Sprintf("stratified %g", k.fraction)
	case keepCount:
		return fmt.Sprintf("first %d", k.count)
	default:
		return "all"
	}
}

// Apply returns the rows of table that k retains.
func (k Keep) Apply(table meta.Table) meta.Table {
	switch k.mode {
	case keepFraction:
		return stratify(table, k.fraction)
	case keepCount:
		return append(meta.Table(nil), table[:min(k.count, len(table))]...)
	default:
		return append(meta.Table(nil), table...)
	}
}

// stratify keeps the head of every class, classes in first-appearance order.
func stratify(table meta.Table, fraction float64) meta.Table {
	var order []int
	groups := make(map[int]meta.Table)
	for _, clip := range table {
		if _, ok := groups[clip.LID]; !ok {
			order = append(order, clip.LID)
		}
		groups[clip.LID] = append(groups[clip.LID], clip)
	}
	out := make(meta.Table, 0, int(math.Ceil(float64(len(table))*fraction)))
	for _, lid := range order {
		rows := groups[lid]
		n := StratifiedCount(len(rows), fraction)
		out = append(out, rows[:n]...)
	}
	return out
}

// StratifiedCount is the number of rows a class of size n keeps under
// fraction f.
func StratifiedCount(n int, f float64) int {
	return min(n, int(math.RoundToEven(float64(n)*f)))
}
