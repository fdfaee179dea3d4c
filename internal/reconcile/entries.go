package reconcile

import "sheet_budget/internal/models"

// FindByID returns the entry with the given sheet ID
func FindByID(entries []models.SheetEntry, sheetID string) (models.SheetEntry, bool) {
	for _, entry := range entries {
		if entry.SheetID == sheetID {
			return entry, true
		}
	}
	return models.SheetEntry{}, false
}

// FindByName returns the first entry with the given sheet name
func FindByName(entries []models.SheetEntry, name string) (models.SheetEntry, bool) {
	for _, entry := range entries {
		if entry.SheetName == name {
			return entry, true
		}
	}
	return models.SheetEntry{}, false
}

// SetArchived returns a copy of entries with the archived flag of sheetID set.
// The bool result is false when no entry has that ID.
func SetArchived(entries []models.SheetEntry, sheetID string, archived bool) ([]models.SheetEntry, bool) {
	out := make([]models.SheetEntry, len(entries))
	copy(out, entries)
	found := false
	for i := range out {
		if out[i].SheetID == sheetID {
			out[i].Archived = archived
			found = true
		}
	}
	return out, found
}

// SetName returns a copy of entries with sheetID renamed, reporting whether it was found
func SetName(entries []models.SheetEntry, sheetID, name string) ([]models.SheetEntry, bool) {
	out := make([]models.SheetEntry, len(entries))
	copy(out, entries)
	found := false
	for i := range out {
		if out[i].SheetID == sheetID {
			out[i].SheetName = name
			found = true
		}
	}
	return out, found
}

// FirstActive returns the first unarchived entry whose ID is not excludeID.
// Used to pick a budget to show when none was requested.
func FirstActive(entries []models.SheetEntry, excludeID string) (models.SheetEntry, bool) {
	for _, entry := range entries {
		if !entry.Archived && entry.SheetID != excludeID {
			return entry, true
		}
	}
	return models.SheetEntry{}, false
}

// Partition splits entries into active and archived, keeping order
func Partition(entries []models.SheetEntry) (active, archived []models.SheetEntry) {
	for _, entry := range entries {
		if entry.Archived {
			archived = append(archived, entry)
		} else {
			active = append(active, entry)
		}
	}
	return active, archived
}

// OrderForDisplay returns active entries followed by archived ones, with the open on load
// sheet moved to the front when it matches an active entry by both name and ID.
func OrderForDisplay(entries []models.SheetEntry, openOnLoad models.NameIDPair) []models.SheetEntry {
	active, archived := Partition(entries)
	out := make([]models.SheetEntry, 0, len(entries))

	pinned := -1
	if openOnLoad.IsSet() {
		for i, entry := range active {
			if entry.SheetID == openOnLoad.SheetID && entry.SheetName == openOnLoad.SheetName {
				pinned = i
				out = append(out, entry)
				break
			}
		}
	}
	for i, entry := range active {
		if i != pinned {
			out = append(out, entry)
		}
	}
	return append(out, archived...)
}
