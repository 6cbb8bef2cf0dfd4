package experiment

import (
	"fmt"
	"strconv"
	"strings"
)

// Override is a single dotted-key configuration override, e.g.
// `SOLVER.BASE_LR 1e-5`. The value is kept as the raw string the caller
// supplied; coercion to the driver's native type happens on demand.
type Override struct {
	Key   string
	Value string
}

func (o Override) String() string {
	return fmt.Sprintf("%s %s", o.Key, o.Value)
}

// CoercedValue interprets the raw value the way the driver's config parser
// does: booleans, integers, floats (including scientific notation), bracketed
// lists and finally plain strings.
func (o Override) CoercedValue() any {
	return coerce(o.Value)
}

func coerce(raw string) any {
	trimmed := strings.TrimSpace(raw)

	switch trimmed {
	case "true", "True":
		return true
	case "false", "False":
		return false
	}

	if parsed, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return parsed
	}
	if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return parsed
	}

	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
		if inner == "" {
			return []any{}
		}
		parts := strings.Split(inner, ",")
		values := make([]any, 0, len(parts))
		for _, part := range parts {
			values = append(values, coerce(part))
		}
		return values
	}

	return trimmed
}

// ParseOverrides turns the flat `KEY VALUE KEY VALUE ...` tail the launch
// commands accept into a list of overrides. An odd-length tail means a key
// without a value, which is always a caller mistake.
func ParseOverrides(args []string) ([]Override, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("dangling override key %q: overrides come in KEY VALUE pairs", args[len(args)-1])
	}

	overrides := make([]Override, 0, len(args)/2)
	for index := 0; index < len(args); index += 2 {
		key := strings.TrimSpace(args[index])
		if key == "" {
			return nil, fmt.Errorf("empty override key at position %d", index)
		}
		overrides = append(overrides, Override{Key: key, Value: args[index+1]})
	}
	return overrides, nil
}

// ParseAssignments parses `KEY=VALUE` strings, the form workspace defaults
// and --set flags use.
func ParseAssignments(assignments []string) ([]Override, error) {
	overrides := make([]Override, 0, len(assignments))
	for _, assignment := range assignments {
		key, value, found := strings.Cut(assignment, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid override %q: expected KEY=VALUE", assignment)
		}
		overrides = append(overrides, Override{Key: strings.TrimSpace(key), Value: value})
	}
	return overrides, nil
}

// Merge combines override lists in increasing priority order. A later list
// wins on key conflicts; the merged list keeps the position of the first
// occurrence of each key so the resulting argv stays stable.
func Merge(lists ...[]Override) []Override {
	merged := make([]Override, 0)
	position := make(map[string]int)

	for _, list := range lists {
		for _, override := range list {
			if index, seen := position[override.Key]; seen {
				merged[index].Value = override.Value
				continue
			}
			position[override.Key] = len(merged)
			merged = append(merged, override)
		}
	}
	return merged
}

// Args flattens overrides back into the `KEY VALUE ...` argv tail handed to
// the driver after the --cfg flag.
func Args(overrides []Override) []string {
	args := make([]string, 0, len(overrides)*2)
	for _, override := range overrides {
		args = append(args, override.Key, override.Value)
	}
	return args
}
