package output

import (
	"fmt"
)

// truncatedSuffix is appended to text cut by TruncateText.
const truncatedSuffix = "\n... output truncated"

// TruncateGeneric truncates items to maxItems.
// Returns the truncated slice and a warning if truncation occurred.
func TruncateGeneric[T any](items []T, maxItems int) ([]T, *TruncationWarning) {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	// Cap at absolute maximum
	if maxItems > AbsoluteMaxItems {
		maxItems = AbsoluteMaxItems
	}

	total := len(items)
	if total <= maxItems {
		return items, nil
	}

	return items[:maxItems], &TruncationWarning{
		Shown:   maxItems,
		Total:   total,
		Message: fmt.Sprintf("Output truncated. Showing %d of %d items. Use a more specific query or filter for complete results.", maxItems, total),
	}
}

// EffectiveLimit calculates the effective limit considering request and config limits.
func EffectiveLimit(requestLimit, configLimit int) int {
	// If no request limit specified, use config limit
	if requestLimit <= 0 {
		if configLimit <= 0 {
			return DefaultMaxItems
		}
		return min(configLimit, AbsoluteMaxItems)
	}

	// Take the minimum of request and config limits
	effective := requestLimit
	if configLimit > 0 && configLimit < effective {
		effective = configLimit
	}

	// Apply absolute maximum
	return min(effective, AbsoluteMaxItems)
}

// TruncateText cuts s to at most maxBytes bytes, not splitting a UTF-8
// sequence, and reports whether it did.
func TruncateText(s string, maxBytes int) (string, bool) {
	maxBytes = effectiveMaxBytes(maxBytes)
	if len(s) <= maxBytes {
		return s, false
	}

	cut := maxBytes
	// Back up to a rune boundary.
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + truncatedSuffix, true
}
