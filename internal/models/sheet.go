package models

import "fmt"

// SheetEntry is the metadata kept for one sheet: its name, ID and whether it is archived
type SheetEntry struct {
	SheetName string `json:"sheetName"`
	SheetID   string `json:"sheetId"`
	Archived  bool   `json:"archived"`
}

func (e SheetEntry) String() string {
	return fmt.Sprintf("sheetName=%s sheetId=%s archived=%t", e.SheetName, e.SheetID, e.Archived)
}

// NameIDPair identifies a sheet by name and ID, used for the open on load sheet
type NameIDPair struct {
	SheetName string `json:"sheetName"`
	SheetID   string `json:"sheetId"`
}

// IsSet reports whether both the name and the ID are present
func (p NameIDPair) IsSet() bool {
	return p.SheetName != "" && p.SheetID != ""
}

func (p NameIDPair) String() string {
	return fmt.Sprintf("sheetName=%s sheetId=%s", p.SheetName, p.SheetID)
}
