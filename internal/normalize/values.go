package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"lifeos/internal/models"
)

// identifier coerces an id value to its string form. Integer ids from the
// legacy schema come back from JSON as float64.
func identifier(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return "", false
		}
		return strconv.FormatInt(int64(x), 10), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case json.Number:
		if _, err := x.Int64(); err != nil {
			return "", false
		}
		return x.String(), true
	}
	return "", false
}

func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	}
	if s, ok := identifier(v); ok {
		return s
	}
	return ""
}

func integer(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return 0
		}
		return int(x)
	case json.Number:
		n, _ := x.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(x))
		return n
	}
	return 0
}

func boolean(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	case float64:
		return x != 0
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	}
	return false
}

// Tags returns tags with blanks and duplicates removed, keeping the first
// occurrence of each value. The result is never nil.
func Tags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func tagList(v any) []string {
	switch x := v.(type) {
	case []string:
		return Tags(x)
	case []any:
		raw := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
		return Tags(raw)
	case string:
		return Tags(strings.Split(x, ","))
	}
	return []string{}
}

func date(v any) models.Date {
	switch x := v.(type) {
	case string:
		return models.ParseDate(x)
	case time.Time:
		return models.DateOf(x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return models.DateOf(*x)
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	models.DateLayout,
}

// timestamp parses stored creation/update times. Strings without a zone are
// read as UTC.
func timestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return models.Timestamp(x), true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return models.Timestamp(t), true
			}
		}
	case float64:
		if x > 0 {
			return models.Timestamp(time.UnixMilli(int64(x * 1000))), true
		}
	case int64:
		if x > 0 {
			return models.Timestamp(time.Unix(x, 0)), true
		}
	}
	return time.Time{}, false
}

func present(rec map[string]any, key string) bool {
	v, ok := rec[key]
	return ok && v != nil
}
