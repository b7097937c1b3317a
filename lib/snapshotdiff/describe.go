package snapshotdiff

import (
	"github.com/antzucaro/matchr"
)

type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Updated
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Updated:
		return "updated"
	}
	return "unknown"
}

// Change is one human-readable difference between two snapshots.
// PreviousLabel is set only for Updated.
type Change struct {
	Kind          ChangeKind
	Label         string
	PreviousLabel string
}

// an added/removed pair whose canonical keys are this similar is one
// record that changed, not two unrelated records
const updatedThreshold = 0.85

// Describe pairs up the records that differ between two snapshots into
// added/removed/updated changes for notification text. Records present
// in both snapshots are skipped. A removed record is matched to the
// most similar added one by key similarity; a close enough pair
// collapses into a single Updated change (a score edit should read
// "updated", not one removal plus one unrelated addition). Output order
// follows the current snapshot for additions and updates, then the
// previous snapshot for removals.
func Describe[T any](current, previous []T, canonical func(T) string, label func(T) string) []Change {
	currentKeys := map[string]T{}
	for _, record := range current {
		currentKeys[canonical(record)] = record
	}
	previousKeys := map[string]T{}
	for _, record := range previous {
		previousKeys[canonical(record)] = record
	}

	var added []string
	for _, record := range current {
		key := canonical(record)
		if _, ok := previousKeys[key]; !ok {
			added = append(added, key)
		}
	}
	var removed []string
	for _, record := range previous {
		key := canonical(record)
		if _, ok := currentKeys[key]; !ok {
			removed = append(removed, key)
		}
	}

	matchedRemoved := map[string]struct{}{}
	var changes []Change

	for _, addedKey := range added {
		var mostSimilarity float64
		var mostSimilar string
		for _, removedKey := range removed {
			if _, taken := matchedRemoved[removedKey]; taken {
				continue
			}
			similarity := matchr.JaroWinkler(addedKey, removedKey, false)
			if similarity > mostSimilarity {
				mostSimilarity = similarity
				mostSimilar = removedKey
			}
		}

		if mostSimilarity >= updatedThreshold {
			matchedRemoved[mostSimilar] = struct{}{}
			changes = append(changes, Change{
				Kind:          Updated,
				Label:         label(currentKeys[addedKey]),
				PreviousLabel: label(previousKeys[mostSimilar]),
			})
			continue
		}
		changes = append(changes, Change{
			Kind:  Added,
			Label: label(currentKeys[addedKey]),
		})
	}

	for _, removedKey := range removed {
		if _, taken := matchedRemoved[removedKey]; taken {
			continue
		}
		changes = append(changes, Change{
			Kind:  Removed,
			Label: label(previousKeys[removedKey]),
		})
	}
	return changes
}
