package budget

import (
	"errors"

	"sheet_budget/internal/auth"
	"sheet_budget/internal/models"
)

var (
	ErrNoNetwork       = errors.New("no network connection")
	ErrAuthRequired    = auth.ErrAuthRequired
	ErrInvalidAmount   = models.ErrInvalidAmount
	ErrArchived        = errors.New("budget is archived")
	ErrSheetDeleted    = errors.New("sheet has been deleted")
	ErrNoSpreadsheet   = errors.New("no spreadsheet selected")
	ErrUnknownSheet    = errors.New("unknown sheet")
	ErrInvalidSheetID  = errors.New("spreadsheet cannot be opened")
	ErrDuplicateBudget = errors.New("a budget with that name already exists")
	ErrEmptyName       = errors.New("budget name is required")
)
