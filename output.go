package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"sheet_budget/internal/app"
	"sheet_budget/internal/budget"
	"sheet_budget/internal/models"
	"sheet_budget/internal/notifications"
)

func printTable(w io.Writer, headers []string, rows [][]string, footers []string) {
	colWidths := make([]int, len(headers))
	for i, header := range headers {
		colWidths[i] = len(header)
	}
	for _, row := range append(rows, footers) {
		for i, cell := range row {
			if len(cell) > colWidths[i] {
				colWidths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string) {
		for i, cell := range cells {
			fmt.Fprintf(w, "%-*s  ", colWidths[i], cell)
		}
		fmt.Fprintln(w)
	}

	printRow(headers)
	for _, row := range rows {
		printRow(row)
	}
	if len(footers) > 0 {
		printRow(footers)
	}
}

// printEntries lists sheets in display order, marking the open on load sheet with *
func printEntries(w io.Writer, entries []models.SheetEntry, openOnLoad models.NameIDPair) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No budgets")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		mark := ""
		if openOnLoad.IsSet() && entry.SheetID == openOnLoad.SheetID {
			mark = "*"
		}
		status := "active"
		if entry.Archived {
			status = "archived"
		}
		rows = append(rows, []string{mark, entry.SheetName, status, entry.SheetID})
	}
	printTable(w, []string{"", "Name", "Status", "Sheet ID"}, rows, nil)
	return nil
}

func printBudget(w io.Writer, view budget.View, sheet *models.BudgetSheet) error {
	fmt.Fprintln(w, view)
	fmt.Fprintln(w)
	printTable(w,
		[]string{"To Spend", "Running Leftover", "Spendable", "Spent", "Leftover"},
		[][]string{{
			strconv.Itoa(sheet.ToSpend),
			strconv.Itoa(sheet.RunningLeftover),
			strconv.Itoa(sheet.Spendable()),
			strconv.Itoa(sheet.Spent()),
			strconv.Itoa(sheet.Leftover()),
		}},
		nil,
	)

	if len(sheet.Expenses) == 0 {
		fmt.Fprintln(w, "\nNo expenses")
		return nil
	}

	fmt.Fprintln(w)
	rows := make([][]string, 0, len(sheet.Expenses))
	for _, e := range sheet.Expenses {
		rows = append(rows, []string{e.Date, e.Description, strconv.Itoa(e.Amount)})
	}
	printTable(w, []string{"Date", "Expense", "Amount"}, rows, []string{"", "Total", strconv.Itoa(sheet.Spent())})
	return nil
}

func printRefresh(w io.Writer, result *budget.RefreshResult) error {
	if result.Changes.Empty() {
		fmt.Fprintf(w, "Up to date, %d budgets\n", len(result.Entries))
	} else {
		fmt.Fprintln(w, notifications.FormatDrift(result.Changes))
	}
	if result.OpenOnLoadCleared {
		fmt.Fprintln(w, "Open on load budget was cleared")
	}
	return nil
}

func printSettings(w io.Writer, settings budget.SettingsInfo, cfg app.Config) error {
	spreadsheet := settings.SpreadsheetID
	if spreadsheet == "" {
		spreadsheet = "(none)"
	}
	openOnLoad := "(none)"
	if settings.OpenOnLoad.IsSet() {
		openOnLoad = settings.OpenOnLoad.SheetName
	}
	signIn := "Google account (" + cfg.OAuthTokenFile + ")"
	if cfg.CredentialsFile != "" {
		signIn = "service account (" + cfg.CredentialsFile + ")"
	}

	printTable(w, []string{"Setting", "Value"}, [][]string{
		{"Spreadsheet", spreadsheet},
		{"Link", settings.SpreadsheetURL},
		{"Open on load", openOnLoad},
		{"Sign in", signIn},
		{"Cache", cfg.CachePath},
	}, nil)
	return nil
}

func parseInterval(text string) (time.Duration, error) {
	d, err := time.ParseDuration(text)
	if err != nil {
		return 0, fmt.Errorf("invalid interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid interval: must be positive")
	}
	return d, nil
}
