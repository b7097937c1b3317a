// Package snapshotdiff decides whether a freshly scraped record
// collection differs meaningfully from the last observed one. "Meaningfully"
// means over the stable fields only: the portal renumbers display indices
// and reorders rows between visits without anything actually changing,
// so comparison runs on sorted canonical keys, never on raw row order.
package snapshotdiff

import "slices"

// Changed reports whether current differs from previous over their
// stable fields. canonical reduces one record to its comparison key;
// keys from both collections are sorted and compared element-wise, so
// reordering and index renumbering never count as a change while any
// stable-field edit, addition or removal does.
func Changed[T any](current, previous []T, canonical func(T) string) bool {
	if len(current) != len(previous) {
		return true
	}

	currentKeys := canonicalKeys(current, canonical)
	previousKeys := canonicalKeys(previous, canonical)
	return !slices.Equal(currentKeys, previousKeys)
}

func canonicalKeys[T any](records []T, canonical func(T) string) []string {
	keys := make([]string, len(records))
	for i, record := range records {
		keys[i] = canonical(record)
	}
	slices.Sort(keys)
	return keys
}
