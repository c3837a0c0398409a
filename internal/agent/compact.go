package agent

import (
	"encoding/json"
	"fmt"
)

const (
	maxListItems = 10
	maxStringLen = 500
)

// compactResult shrinks a tool result before prompt injection: lists are
// cut to the first ten entries with a marker, long strings truncated,
// and the whole rendering capped at maxChars.
func compactResult(result any, maxChars int) string {
	var out string

	switch v := result.(type) {
	case map[string]any:
		compacted := make(map[string]any, len(v))
		for key, value := range v {
			compacted[key] = compactValue(value)
		}
		out = marshalCompact(compacted)
	case []any:
		out = marshalCompact(truncateList(v))
	case []map[string]any:
		anys := make([]any, len(v))
		for i, m := range v {
			anys[i] = m
		}
		out = marshalCompact(truncateList(anys))
	default:
		out = fmt.Sprint(v)
		if len(out) > maxStringLen {
			out = out[:maxStringLen] + "..."
		}
	}

	if maxChars > 0 && len(out) > maxChars {
		out = out[:maxChars] + "... (truncated)"
	}
	return out
}

func compactValue(value any) any {
	switch v := value.(type) {
	case []any:
		return truncateList(v)
	case []map[string]any:
		anys := make([]any, len(v))
		for i, m := range v {
			anys[i] = m
		}
		return truncateList(anys)
	case string:
		if len(v) > maxStringLen {
			return v[:maxStringLen] + "..."
		}
		return v
	default:
		return v
	}
}

func truncateList(list []any) []any {
	if len(list) <= maxListItems {
		return list
	}
	kept := make([]any, maxListItems, maxListItems+1)
	copy(kept, list[:maxListItems])
	return append(kept, fmt.Sprintf("... (%d more items)", len(list)-maxListItems))
}

func marshalCompact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
