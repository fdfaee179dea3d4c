package sheets

import (
	"context"
	"encoding/json"
	"fmt"

	"sheet_budget/internal/models"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/sheets/v4"
)

// MetadataID is the developer metadata ID holding the sheet entry list
const MetadataID int64 = 1001

const metadataVisibility = "DOCUMENT"

// GetMetadata returns the sheet entry list stored in the spreadsheet's developer metadata.
// A spreadsheet without metadata yields an empty list and no error.
func (c *Client) GetMetadata(ctx context.Context, spreadsheetID string) ([]models.SheetEntry, error) {
	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Fetching spreadsheet metadata")

	md, err := c.service.Spreadsheets.DeveloperMetadata.Get(spreadsheetID, MetadataID).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("No metadata on spreadsheet yet")
			c.setMetadataExists(spreadsheetID, false)
			return []models.SheetEntry{}, nil
		}
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	c.setMetadataExists(spreadsheetID, true)

	entries := []models.SheetEntry{}
	if md.MetadataValue != "" {
		if err := json.Unmarshal([]byte(md.MetadataValue), &entries); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}

	log.Debug().
		Str("spreadsheet_id", spreadsheetID).
		Int("entries", len(entries)).
		Msg("Retrieved spreadsheet metadata")
	return entries, nil
}

// UpdateMetadata replaces the sheet entry list stored on the spreadsheet,
// creating the developer metadata the first time.
func (c *Client) UpdateMetadata(ctx context.Context, spreadsheetID string, entries []models.SheetEntry) error {
	exists, known := c.getMetadataExists(spreadsheetID)
	if !known {
		if _, err := c.GetMetadata(ctx, spreadsheetID); err != nil {
			return err
		}
		exists, _ = c.getMetadataExists(spreadsheetID)
	}

	if entries == nil {
		entries = []models.SheetEntry{}
	}
	value, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	var request *sheets.Request
	if exists {
		request = updateMetadataRequest(spreadsheetID, string(value))
	} else {
		request = createMetadataRequest(spreadsheetID, string(value))
	}

	if _, err := c.batchUpdate(ctx, spreadsheetID, request); err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	c.setMetadataExists(spreadsheetID, true)

	log.Info().
		Str("spreadsheet_id", spreadsheetID).
		Int("entries", len(entries)).
		Bool("created", !exists).
		Msg("Updated spreadsheet metadata")
	return nil
}

func metadataLocation() *sheets.DeveloperMetadataLocation {
	return &sheets.DeveloperMetadataLocation{Spreadsheet: true}
}

func metadata(spreadsheetID, value string) *sheets.DeveloperMetadata {
	return &sheets.DeveloperMetadata{
		Location:      metadataLocation(),
		MetadataId:    MetadataID,
		MetadataKey:   spreadsheetID,
		MetadataValue: value,
		Visibility:    metadataVisibility,
	}
}

// createMetadataRequest is sent when the spreadsheet has no metadata yet
func createMetadataRequest(spreadsheetID, value string) *sheets.Request {
	return &sheets.Request{
		CreateDeveloperMetadata: &sheets.CreateDeveloperMetadataRequest{
			DeveloperMetadata: metadata(spreadsheetID, value),
		},
	}
}

// updateMetadataRequest replaces existing metadata found by exact location and ID
func updateMetadataRequest(spreadsheetID, value string) *sheets.Request {
	return &sheets.Request{
		UpdateDeveloperMetadata: &sheets.UpdateDeveloperMetadataRequest{
			DeveloperMetadata: metadata(spreadsheetID, value),
			DataFilters: []*sheets.DataFilter{{
				DeveloperMetadataLookup: &sheets.DeveloperMetadataLookup{
					MetadataLocation:         metadataLocation(),
					LocationMatchingStrategy: "EXACT_LOCATION",
					MetadataId:               MetadataID,
					MetadataKey:              spreadsheetID,
					Visibility:               metadataVisibility,
				},
			}},
			Fields: "*",
		},
	}
}

func (c *Client) setMetadataExists(spreadsheetID string, exists bool) {
	c.mutex.Lock()
	c.metadataExists[spreadsheetID] = exists
	c.mutex.Unlock()
}

func (c *Client) getMetadataExists(spreadsheetID string) (exists, known bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	exists, known = c.metadataExists[spreadsheetID]
	return exists, known
}
