// Package cache keeps a local copy of spreadsheet state so the last known budgets can be
// shown without a round trip. Values are JSON strings under string keys; the sqlite Store
// is the source of truth and a ristretto cache sits in front of it for repeated reads.
package cache

import (
	"encoding/json"
	"fmt"

	"sheet_budget/internal/models"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
)

const (
	spreadsheetKey     = "spreadsheet_id"
	openOnLoadKey      = "open_on_load"
	budgetSheetPrefix  = "budget_sheet:"
	sheetEntriesPrefix = "sheet_entries:"
)

type Cache struct {
	store *Store
	hot   *ristretto.Cache
}

// Open opens the sqlite store at path and wraps it in a Cache
func Open(path string) (*Cache, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	c, err := New(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func New(store *Store) (*Cache, error) {
	hot, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     1000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory cache: %w", err)
	}
	return &Cache{store: store, hot: hot}, nil
}

func (c *Cache) Close() error {
	c.hot.Close()
	return c.store.Close()
}

// Clear removes every cached value
func (c *Cache) Clear() error {
	c.hot.Clear()
	if err := c.store.Clear(); err != nil {
		return err
	}
	log.Debug().Msg("Cleared cache")
	return nil
}

// =============================================================================================

func (c *Cache) PutBudgetSheet(sheetID string, sheet *models.BudgetSheet) error {
	return c.putJSON(budgetSheetPrefix+sheetID, sheet)
}

// GetBudgetSheet returns the cached snapshot of a sheet; ok is false when none is cached
func (c *Cache) GetBudgetSheet(sheetID string) (*models.BudgetSheet, bool, error) {
	var sheet models.BudgetSheet
	ok, err := c.getJSON(budgetSheetPrefix+sheetID, &sheet)
	if !ok || err != nil {
		return nil, false, err
	}
	return &sheet, true, nil
}

// =============================================================================================

func (c *Cache) PutSheetEntries(spreadsheetID string, entries []models.SheetEntry) error {
	if entries == nil {
		entries = []models.SheetEntry{}
	}
	return c.putJSON(sheetEntriesPrefix+spreadsheetID, entries)
}

// GetSheetEntries returns the cached metadata list for a spreadsheet
func (c *Cache) GetSheetEntries(spreadsheetID string) ([]models.SheetEntry, bool, error) {
	var entries []models.SheetEntry
	ok, err := c.getJSON(sheetEntriesPrefix+spreadsheetID, &entries)
	if !ok || err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

// =============================================================================================

func (c *Cache) PutSpreadsheetID(spreadsheetID string) error {
	return c.putJSON(spreadsheetKey, spreadsheetID)
}

// GetSpreadsheetID returns the spreadsheet the app is using, or "" when none is stored
func (c *Cache) GetSpreadsheetID() (string, error) {
	var id string
	if _, err := c.getJSON(spreadsheetKey, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Cache) IsSpreadsheetIDValid() bool {
	id, err := c.GetSpreadsheetID()
	return err == nil && id != ""
}

// =============================================================================================

func (c *Cache) PutOpenOnLoad(sheetID, sheetName string) error {
	return c.putJSON(openOnLoadKey, models.NameIDPair{SheetName: sheetName, SheetID: sheetID})
}

// ClearOpenOnLoad resets the open on load sheet so it is considered unset
func (c *Cache) ClearOpenOnLoad() error {
	return c.PutOpenOnLoad("", "")
}

// GetOpenOnLoad returns the sheet to open on start; an empty pair when none is stored
func (c *Cache) GetOpenOnLoad() (models.NameIDPair, error) {
	var pair models.NameIDPair
	if _, err := c.getJSON(openOnLoadKey, &pair); err != nil {
		return models.NameIDPair{}, err
	}
	return pair, nil
}

func (c *Cache) IsOpenOnLoadValid() bool {
	pair, err := c.GetOpenOnLoad()
	return err == nil && pair.IsSet()
}

// =============================================================================================

func (c *Cache) putJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.store.Put(key, string(data)); err != nil {
		return err
	}

	c.hot.Del(key)
	c.hot.Set(key, string(data), 1)
	c.hot.Wait()

	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Cached value")
	return nil
}

func (c *Cache) getJSON(key string, v interface{}) (bool, error) {
	raw, ok := c.hotGet(key)
	if !ok {
		var err error
		raw, ok, err = c.store.Get(key)
		if err != nil {
			return false, err
		}
		if !ok {
			log.Debug().Str("key", key).Msg("Cache miss")
			return false, nil
		}
		c.hot.Set(key, raw, 1)
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) hotGet(key string) (string, bool) {
	value, ok := c.hot.Get(key)
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}
