package sheets

import (
	"context"
	"fmt"
	"strconv"

	"sheet_budget/internal/models"

	"github.com/rs/zerolog/log"
)

// GetProperties lists the sheets that currently exist on the spreadsheet.
// Entries are unarchived; only names and IDs come from the spreadsheet itself.
func (c *Client) GetProperties(ctx context.Context, spreadsheetID string) ([]models.SheetEntry, error) {
	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Fetching spreadsheet properties")

	resp, err := c.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet properties: %w", err)
	}

	entries := make([]models.SheetEntry, 0, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet.Properties == nil {
			continue
		}
		entries = append(entries, models.SheetEntry{
			SheetName: sheet.Properties.Title,
			SheetID:   strconv.FormatInt(sheet.Properties.SheetId, 10),
		})
	}

	log.Debug().
		Str("spreadsheet_id", spreadsheetID).
		Int("sheets", len(entries)).
		Msg("Retrieved spreadsheet properties")
	return entries, nil
}

// SheetName returns the current title of a sheet; ok is false when the sheet no longer exists
func (c *Client) SheetName(ctx context.Context, spreadsheetID, sheetID string) (name string, ok bool, err error) {
	entries, err := c.GetProperties(ctx, spreadsheetID)
	if err != nil {
		return "", false, err
	}
	for _, entry := range entries {
		if entry.SheetID == sheetID {
			return entry.SheetName, true, nil
		}
	}
	return "", false, nil
}

// ValidateSpreadsheetID reports whether the spreadsheet exists and can be read with the current credentials
func (c *Client) ValidateSpreadsheetID(ctx context.Context, spreadsheetID string) bool {
	if spreadsheetID == "" {
		return false
	}
	_, err := c.service.Spreadsheets.Get(spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		log.Debug().Err(err).Str("spreadsheet_id", spreadsheetID).Msg("Spreadsheet ID failed validation")
		return false
	}
	return true
}
