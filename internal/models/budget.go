package models

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when an expense amount is not a whole number
var ErrInvalidAmount = errors.New("non-numeric expense amount")

// Expense is a single line on a budget sheet
type Expense struct {
	Date        string `json:"date"`
	Description string `json:"expense"`
	Amount      int    `json:"amount"`
}

// Row converts the expense to the cell values appended to a sheet
func (e Expense) Row() []interface{} {
	return []interface{}{e.Date, e.Description, fmt.Sprintf("%d", e.Amount)}
}

// BudgetSheet holds the data stored on one sheet of the spreadsheet, and therefore one budget
type BudgetSheet struct {
	ToSpend         int       `json:"toSpend"`
	RunningLeftover int       `json:"runningLeftover"`
	Expenses        []Expense `json:"expenses"`
}

func (b *BudgetSheet) Spendable() int {
	return b.ToSpend + b.RunningLeftover
}

func (b *BudgetSheet) Spent() int {
	total := 0
	for _, e := range b.Expenses {
		total += e.Amount
	}
	return total
}

func (b *BudgetSheet) Leftover() int {
	return b.Spendable() - b.Spent()
}

// AddExpense appends an expense to the sheet
func (b *BudgetSheet) AddExpense(e Expense) {
	b.Expenses = append(b.Expenses, e)
}

// TemplateRows returns the first four rows written to a newly created budget sheet.
// Columns C through E of row 2 are formulas so the sheet stays correct when edited by hand.
func (b *BudgetSheet) TemplateRows() [][]interface{} {
	return [][]interface{}{
		{"To Spend:", "Running Leftover:", "Spendable:", "Spent:", "Leftover:"},
		{fmt.Sprintf("%d", b.ToSpend), fmt.Sprintf("%d", b.RunningLeftover), "=A2+B2", "=SUM(C5:C)", "=C2-D2"},
		{},
		{"Date:", "Expense:", "Amount:"},
	}
}

func (b *BudgetSheet) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("toSpend=%d runningLeftover=%d spendable=%d spent=%d leftover=%d expenses=[",
		b.ToSpend, b.RunningLeftover, b.Spendable(), b.Spent(), b.Leftover()))
	for i, e := range b.Expenses {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("{%s %s %d}", e.Date, e.Description, e.Amount))
	}
	sb.WriteString("]")
	return sb.String()
}

// ParseAmount parses user input into a whole-number amount.
// "12", "12.0" and " 12 " are accepted; "12.5" and "twelve" are not.
func ParseAmount(text string) (int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidAmount, text)
	}
	if !InIntRange(d) {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, text)
	}
	return int(d.IntPart()), nil
}

var (
	minAmount = decimal.NewFromInt(math.MinInt)
	maxAmount = decimal.NewFromInt(math.MaxInt)
)

// InIntRange reports whether d fits in an int without wrapping
func InIntRange(d decimal.Decimal) bool {
	return !d.LessThan(minAmount) && !d.GreaterThan(maxAmount)
}
