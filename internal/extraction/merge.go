// Package extraction reconstructs typed marketplace records out of the
// loosely typed on-chain payloads: type-tag dispatch for write-set values and
// events, and merge-then-decode for entry function argument lists.
package extraction

import (
	"encoding/json"
	"fmt"
)

// MergeArguments folds an entry function's ordered argument list into one
// JSON value. Objects merge key-by-key left to right, recursing into nested
// objects, with later keys overwriting earlier ones; a non-object value
// replaces the accumulator outright.
func MergeArguments(args []json.RawMessage) (json.RawMessage, error) {
	values := make([]any, 0, len(args))
	for i, raw := range args {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("argument %d is not valid JSON: %w", i, err)
		}
		values = append(values, v)
	}

	merged, err := json.Marshal(MergeValues(values))
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode merged arguments: %w", err)
	}
	return merged, nil
}

// MergeValues merges decoded JSON values left to right. An empty input
// merges to nil.
func MergeValues(values []any) any {
	var acc any
	for i, v := range values {
		if i == 0 {
			acc = v
			continue
		}
		acc = mergeValue(acc, v)
	}
	return acc
}

func mergeValue(acc, next any) any {
	accObj, accOk := acc.(map[string]any)
	nextObj, nextOk := next.(map[string]any)
	if !accOk || !nextOk {
		return next
	}

	merged := make(map[string]any, len(accObj)+len(nextObj))
	for k, v := range accObj {
		merged[k] = v
	}
	for k, v := range nextObj {
		if existing, ok := merged[k]; ok {
			merged[k] = mergeValue(existing, v)
		} else {
			merged[k] = v
		}
	}
	return merged
}
