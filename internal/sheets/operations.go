package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"sheet_budget/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"google.golang.org/api/sheets/v4"
)

// ErrMalformedSheet is returned when a sheet does not follow the budget layout
var ErrMalformedSheet = errors.New("sheet does not follow the budget layout")

// Layout of a budget sheet: row 2 holds the amounts, expenses start on row 5
const (
	amountsRow      = 1
	firstExpenseRow = 4
)

// GetSheet reads a budget sheet by name and parses it
func (c *Client) GetSheet(ctx context.Context, spreadsheetID, sheetName string) (*models.BudgetSheet, error) {
	values, err := c.ReadSheet(ctx, spreadsheetID, budgetRange(sheetName))
	if err != nil {
		return nil, err
	}

	sheet, err := ParseBudgetSheet(values)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheetName, err)
	}

	log.Debug().
		Str("sheet", sheetName).
		Int("expenses", len(sheet.Expenses)).
		Int("leftover", sheet.Leftover()).
		Msg("Retrieved budget sheet")
	return sheet, nil
}

// AppendExpense adds one expense row to the end of a budget sheet
func (c *Client) AppendExpense(ctx context.Context, spreadsheetID, sheetName string, expense models.Expense) error {
	return c.AppendRows(ctx, spreadsheetID, budgetRange(sheetName), [][]interface{}{expense.Row()})
}

// AddSheet creates a new sheet, writes the budget header to it and returns its sheet ID
func (c *Client) AddSheet(ctx context.Context, spreadsheetID, sheetName string, budget *models.BudgetSheet) (string, error) {
	resp, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{Title: sheetName},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to add sheet %q: %w", sheetName, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return "", fmt.Errorf("failed to add sheet %q: empty reply", sheetName)
	}
	sheetID := strconv.FormatInt(resp.Replies[0].AddSheet.Properties.SheetId, 10)

	if err := c.AppendRows(ctx, spreadsheetID, budgetRange(sheetName), budget.TemplateRows()); err != nil {
		return "", fmt.Errorf("failed to populate sheet %q: %w", sheetName, err)
	}

	log.Info().
		Str("sheet", sheetName).
		Str("sheet_id", sheetID).
		Msg("Added budget sheet")
	return sheetID, nil
}

// ParseBudgetSheet converts raw cell values into a BudgetSheet
func ParseBudgetSheet(values [][]interface{}) (*models.BudgetSheet, error) {
	if len(values) <= amountsRow || len(values[amountsRow]) < 2 {
		return nil, fmt.Errorf("%w: missing amounts on row 2", ErrMalformedSheet)
	}

	toSpend, err := cellInt(values[amountsRow][0])
	if err != nil {
		return nil, fmt.Errorf("%w: to spend: %v", ErrMalformedSheet, err)
	}
	runningLeftover, err := cellInt(values[amountsRow][1])
	if err != nil {
		return nil, fmt.Errorf("%w: running leftover: %v", ErrMalformedSheet, err)
	}

	sheet := &models.BudgetSheet{
		ToSpend:         toSpend,
		RunningLeftover: runningLeftover,
		Expenses:        []models.Expense{},
	}

	for i := firstExpenseRow; i < len(values); i++ {
		row := values[i]
		if isBlankRow(row) {
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("%w: row %d has no amount", ErrMalformedSheet, i+1)
		}
		amount, err := cellInt(row[2])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedSheet, i+1, err)
		}
		sheet.AddExpense(models.Expense{
			Date:        extractStringField(row, 0),
			Description: extractStringField(row, 1),
			Amount:      amount,
		})
	}

	return sheet, nil
}

// cellInt reads a whole number from a cell, which may be a JSON number or text
func cellInt(cell interface{}) (int, error) {
	var d decimal.Decimal
	switch v := cell.(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		var err error
		d, err = decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(v), ",", ""))
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
	default:
		return 0, fmt.Errorf("not a number: %v", cell)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("not a whole number: %s", d)
	}
	if !models.InIntRange(d) {
		return 0, fmt.Errorf("out of range: %s", d)
	}
	return int(d.IntPart()), nil
}

// extractStringField safely extracts a string field from a row at the given index
func extractStringField(row []interface{}, index int) string {
	if len(row) > index && row[index] != nil {
		return fmt.Sprintf("%v", row[index])
	}
	return ""
}

func isBlankRow(row []interface{}) bool {
	for i := range row {
		if strings.TrimSpace(extractStringField(row, i)) != "" {
			return false
		}
	}
	return true
}

// budgetRange is the A1 range covering a budget sheet's columns
func budgetRange(sheetName string) string {
	return quoteSheetName(sheetName) + "!A:E"
}

func quoteSheetName(sheetName string) string {
	return "'" + strings.ReplaceAll(sheetName, "'", "''") + "'"
}
