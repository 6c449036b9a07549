package output

import (
	"encoding/json"
	"fmt"
)

// FormatResult wraps a list under key together with its count and any
// truncation warnings.
func FormatResult(key string, items interface{}, count int, warnings []TruncationWarning) map[string]interface{} {
	result := map[string]interface{}{
		key:     items,
		"count": count,
	}
	return AppendWarningsToResult(result, warnings)
}

// AppendWarningsToResult appends truncation warnings to a JSON result.
// The warnings are added to a "_warnings" field if any exist.
func AppendWarningsToResult(result map[string]interface{}, warnings []TruncationWarning) map[string]interface{} {
	if len(warnings) == 0 {
		return result
	}

	warningMsgs := make([]string, 0, len(warnings))
	for _, w := range warnings {
		warningMsgs = append(warningMsgs, w.Message)
	}

	result["_warnings"] = warningMsgs
	result["_truncated"] = true

	return result
}

// JSON renders v as indented JSON. A rendering larger than maxBytes is an
// error: JSON is never cut.
func JSON(v interface{}, maxBytes int) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	if limit := effectiveMaxBytes(maxBytes); len(data) > limit {
		return "", fmt.Errorf("result of %d bytes exceeds the response limit of %d bytes, use a more specific query or a smaller limit", len(data), limit)
	}
	return string(data), nil
}

// ListJSON renders items under key like FormatResult, with "total" set to
// total. When the rendering exceeds maxBytes, trailing items are dropped
// until it fits and a warning says how many were kept.
func ListJSON[T any](key string, items []T, total int, warnings []TruncationWarning, maxBytes int) (string, error) {
	render := func(n int, ws []TruncationWarning) ([]byte, error) {
		result := FormatResult(key, items[:n], n, ws)
		result["total"] = total
		return json.MarshalIndent(result, "", "  ")
	}

	limit := effectiveMaxBytes(maxBytes)
	data, err := render(len(items), warnings)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	if len(data) <= limit {
		return string(data), nil
	}

	// Largest prefix that still fits, found by bisection.
	sizeWarning := func(n int) []TruncationWarning {
		return append(append([]TruncationWarning{}, warnings...), TruncationWarning{
			Shown:   n,
			Total:   total,
			Message: fmt.Sprintf("Output truncated to %d bytes. Showing %d of %d items. Use a more specific query or a smaller limit for complete results.", limit, n, total),
		})
	}
	lo, hi := 0, len(items)-1
	best := -1
	var bestData []byte
	for lo <= hi {
		mid := (lo + hi) / 2
		data, err := render(mid, sizeWarning(mid))
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		if len(data) <= limit {
			best, bestData = mid, data
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best < 0 {
		return "", fmt.Errorf("result exceeds the response limit of %d bytes", limit)
	}
	return string(bestData), nil
}

func effectiveMaxBytes(maxBytes int) int {
	if maxBytes <= 0 {
		return DefaultMaxResponseBytes
	}
	return min(maxBytes, AbsoluteMaxResponseBytes)
}
