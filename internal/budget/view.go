package budget

import "fmt"

type ViewKind int

const (
	NoSpreadsheet ViewKind = iota
	NoActiveSheets
	ActiveBudget
	ArchivedBudget
	Settings
)

func (k ViewKind) String() string {
	switch k {
	case NoSpreadsheet:
		return "No Spreadsheet Selected"
	case NoActiveSheets:
		return "No Active Sheets"
	case ActiveBudget:
		return "Active Budget"
	case ArchivedBudget:
		return "Archived Budget"
	case Settings:
		return "Settings"
	default:
		return fmt.Sprintf("ViewKind(%d)", int(k))
	}
}

// View is what the app is showing. SheetID and SheetName are only set for budget views.
type View struct {
	Kind      ViewKind
	SheetID   string
	SheetName string
}

// IsBudget reports whether the view shows a budget sheet
func (v View) IsBudget() bool {
	return v.Kind == ActiveBudget || v.Kind == ArchivedBudget
}

func (v View) String() string {
	if v.IsBudget() {
		return fmt.Sprintf("%s: %s", v.Kind, v.SheetName)
	}
	return v.Kind.String()
}
