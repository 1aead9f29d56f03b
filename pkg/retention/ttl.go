package retention

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"mercator-hq/chronicle/pkg/history"
)

// TTL is a time-to-live in whole days, or Never. Days(0) means a record is
// cleanable as soon as it finishes; Never means it is never cleanable.
type TTL struct {
	days int
	set  bool
}

// Never is the absent TTL.
var Never = TTL{}

// Days returns a TTL of n days. Negative values are treated as Never.
func Days(n int) TTL {
	if n < 0 {
		return Never
	}
	return TTL{days: n, set: true}
}

// Days returns the number of days and whether the TTL is set.
func (t TTL) Days() (int, bool) {
	return t.days, t.set
}

// IsSet reports whether the TTL has a value.
func (t TTL) IsSet() bool {
	return t.set
}

// String renders the TTL in day-duration notation, e.g. "P5D", or "never".
func (t TTL) String() string {
	if !t.set {
		return "never"
	}
	return fmt.Sprintf("P%dD", t.days)
}

var dayDuration = regexp.MustCompile(`^P(\d+)D$`)

// ParseTTL parses "PnD" notation or a bare day count. An empty string or
// "null" yields Never. Sub-day units are not supported.
func ParseTTL(s string) (TTL, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "never") {
		return Never, nil
	}

	upper := strings.ToUpper(s)
	if m := dayDuration.FindStringSubmatch(upper); m != nil {
		return parseDays(s, m[1])
	}
	if strings.HasPrefix(upper, "P") {
		return Never, history.NewInvalidArgumentError("historyTimeToLive",
			fmt.Sprintf("historyTimeToLive '%s' is not a whole-day duration (PnD)", s))
	}
	return parseDays(s, s)
}

func parseDays(raw, digits string) (TTL, error) {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return Never, history.NewInvalidArgumentError("historyTimeToLive",
			fmt.Sprintf("historyTimeToLive '%s' must be a non-negative number of days", raw))
	}
	return Days(n), nil
}

// MarshalJSON renders the TTL as a day count or null.
func (t TTL) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(t.days)), nil
}

// UnmarshalJSON accepts a day count, a "PnD" string, or null.
func (t *TTL) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ttlFrom(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML renders the TTL in "PnD" notation or null.
func (t TTL) MarshalYAML() (any, error) {
	if !t.set {
		return nil, nil
	}
	return t.String(), nil
}

// UnmarshalYAML accepts a day count, a "PnD" string, or null.
func (t *TTL) UnmarshalYAML(node *yaml.Node) error {
	if node.Tag == "!!null" {
		*t = Never
		return nil
	}
	parsed, err := ParseTTL(node.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ttlFrom(raw any) (TTL, error) {
	switch v := raw.(type) {
	case nil:
		return Never, nil
	case float64:
		if v < 0 || v != float64(int(v)) {
			return Never, history.NewInvalidArgumentError("historyTimeToLive",
				fmt.Sprintf("historyTimeToLive %v must be a non-negative number of days", v))
		}
		return Days(int(v)), nil
	case string:
		return ParseTTL(v)
	default:
		return Never, history.NewInvalidArgumentError("historyTimeToLive",
			fmt.Sprintf("historyTimeToLive has unsupported type %T", raw))
	}
}
