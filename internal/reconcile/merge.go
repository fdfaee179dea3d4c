// Package reconcile merges the sheet list stored in spreadsheet metadata with the
// sheets that actually exist on the spreadsheet.
package reconcile

import "sheet_budget/internal/models"

// Rename records a sheet whose title changed on the spreadsheet
type Rename struct {
	SheetID string
	OldName string
	NewName string
}

// Changes describes what a merge did to the cached list
type Changes struct {
	Added   []models.SheetEntry
	Renamed []Rename
	Removed []models.SheetEntry
}

// Empty reports whether the merge left the cached list untouched
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Renamed) == 0 && len(c.Removed) == 0
}

// Merge returns the cached metadata updated to match the live spreadsheet properties.
// Archived flags are kept from cached, renames are applied in place, sheets only present
// in live are appended unarchived and sheets missing from live are dropped.
func Merge(cached, live []models.SheetEntry) []models.SheetEntry {
	merged, _ := MergeWithChanges(cached, live)
	return merged
}

// MergeWithChanges is Merge that also reports the individual additions, renames and removals.
func MergeWithChanges(cached, live []models.SheetEntry) ([]models.SheetEntry, Changes) {
	var changes Changes

	merged := make([]models.SheetEntry, 0, len(cached)+len(live))
	index := make(map[string]int, len(cached))
	for _, entry := range cached {
		if _, dup := index[entry.SheetID]; dup {
			// IDs are unique; a repeated entry can only come from a corrupted blob
			continue
		}
		index[entry.SheetID] = len(merged)
		merged = append(merged, entry)
	}

	liveIDs := make(map[string]struct{}, len(live))
	for _, sheet := range live {
		liveIDs[sheet.SheetID] = struct{}{}

		i, ok := index[sheet.SheetID]
		if !ok {
			added := models.SheetEntry{SheetName: sheet.SheetName, SheetID: sheet.SheetID}
			index[sheet.SheetID] = len(merged)
			merged = append(merged, added)
			changes.Added = append(changes.Added, added)
			continue
		}
		if merged[i].SheetName != sheet.SheetName {
			changes.Renamed = append(changes.Renamed, Rename{
				SheetID: sheet.SheetID,
				OldName: merged[i].SheetName,
				NewName: sheet.SheetName,
			})
			merged[i].SheetName = sheet.SheetName
		}
	}

	kept := merged[:0]
	for _, entry := range merged {
		if _, ok := liveIDs[entry.SheetID]; ok {
			kept = append(kept, entry)
		} else {
			changes.Removed = append(changes.Removed, entry)
		}
	}

	return kept, changes
}

// Equal reports whether two lists hold the same entries in the same order
func Equal(a, b []models.SheetEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
