package model

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Weekdays is a set of weekday indices, 0=Sunday..6=Saturday.
// It is stored as a comma separated list.
type Weekdays []int

// Contains reports whether day is a member of the set.
func (w Weekdays) Contains(day int) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}

// Normalize returns a sorted copy without duplicates or out of range values.
func (w Weekdays) Normalize() Weekdays {
	seen := make(map[int]bool, len(w))
	out := make(Weekdays, 0, len(w))
	for _, d := range w {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

func (w Weekdays) Value() (driver.Value, error) {
	parts := make([]string, len(w))
	for i, d := range w {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ","), nil
}

func (w *Weekdays) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*w = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan weekdays: unsupported type %T", src)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*w = nil
		return nil
	}
	parts := strings.Split(raw, ",")
	days := make(Weekdays, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("scan weekdays %q: %w", raw, err)
		}
		days = append(days, d)
	}
	*w = days
	return nil
}
