// Package budget ties the local cache, the Sheets client and reconciliation together into
// the operations a user performs on their budgets.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sheet_budget/internal/cache"
	"sheet_budget/internal/models"
	"sheet_budget/internal/reconcile"
	"sheet_budget/internal/sheets"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Remote is the subset of the Sheets client the service needs
type Remote interface {
	GetSheet(ctx context.Context, spreadsheetID, sheetName string) (*models.BudgetSheet, error)
	AppendExpense(ctx context.Context, spreadsheetID, sheetName string, expense models.Expense) error
	AddSheet(ctx context.Context, spreadsheetID, sheetName string, budget *models.BudgetSheet) (string, error)
	GetMetadata(ctx context.Context, spreadsheetID string) ([]models.SheetEntry, error)
	UpdateMetadata(ctx context.Context, spreadsheetID string, entries []models.SheetEntry) error
	GetProperties(ctx context.Context, spreadsheetID string) ([]models.SheetEntry, error)
	SheetName(ctx context.Context, spreadsheetID, sheetID string) (string, bool, error)
	ValidateSpreadsheetID(ctx context.Context, spreadsheetID string) bool
}

var _ Remote = (*sheets.Client)(nil)

// Date format used for expense rows, e.g. 3/7/2024
const DateFormat = "1/2/2006"

type Service struct {
	remote Remote
	cache  *cache.Cache
	online NetworkChecker
	now    func() time.Time
}

type Option func(*Service)

func WithNetworkChecker(checker NetworkChecker) Option {
	return func(s *Service) { s.online = checker }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService binds remote and cache. A nil remote gives a service limited to cached data
// whose remote operations fail with ErrAuthRequired.
func NewService(remote Remote, c *cache.Cache, opts ...Option) *Service {
	s := &Service{
		remote: remote,
		cache:  c,
		online: DialChecker(sheetsAddress, 3*time.Second),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Budget is a loaded sheet together with its metadata entry
type Budget struct {
	models.SheetEntry
	Sheet *models.BudgetSheet
}

// RefreshResult reports what a reconciliation changed
type RefreshResult struct {
	Entries           []models.SheetEntry
	Changes           reconcile.Changes
	Pushed            bool
	OpenOnLoadCleared bool
}

// SettingsInfo is the data shown on the settings view
type SettingsInfo struct {
	SpreadsheetID  string
	SpreadsheetURL string
	OpenOnLoad     models.NameIDPair
}

// =============================================================================================

// Refresh reconciles the metadata list with the sheets that exist on the spreadsheet. The
// merged list is pushed back only when it differs from the stored metadata, and an open on
// load sheet that is gone or archived is cleared.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	spreadsheetID, err := s.spreadsheetID()
	if err != nil {
		return nil, err
	}
	if err := s.checkNetwork(ctx); err != nil {
		return nil, err
	}

	var metadata, live []models.SheetEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		metadata, err = s.remote.GetMetadata(gctx, spreadsheetID)
		return err
	})
	g.Go(func() error {
		var err error
		live, err = s.remote.GetProperties(gctx, spreadsheetID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to refresh sheet list: %w", err)
	}

	merged, changes := reconcile.MergeWithChanges(metadata, live)
	result := &RefreshResult{Entries: merged, Changes: changes}

	if !reconcile.Equal(merged, metadata) {
		if err := s.remote.UpdateMetadata(ctx, spreadsheetID, merged); err != nil {
			return nil, err
		}
		result.Pushed = true
	}
	if err := s.cache.PutSheetEntries(spreadsheetID, merged); err != nil {
		return nil, err
	}

	cleared, err := s.healOpenOnLoad(merged)
	if err != nil {
		return nil, err
	}
	result.OpenOnLoadCleared = cleared

	log.Info().
		Str("spreadsheet_id", spreadsheetID).
		Int("sheets", len(merged)).
		Int("added", len(changes.Added)).
		Int("renamed", len(changes.Renamed)).
		Int("removed", len(changes.Removed)).
		Bool("pushed", result.Pushed).
		Msg("Refreshed sheet list")
	return result, nil
}

// healOpenOnLoad follows renames of the open on load sheet and clears it when the sheet was
// deleted or archived. It reports whether the pair was cleared.
func (s *Service) healOpenOnLoad(entries []models.SheetEntry) (bool, error) {
	pair, err := s.cache.GetOpenOnLoad()
	if err != nil || !pair.IsSet() {
		return false, err
	}

	entry, ok := reconcile.FindByID(entries, pair.SheetID)
	if !ok || entry.Archived {
		log.Info().Str("sheet_id", pair.SheetID).Msg("Open on load sheet is gone, clearing it")
		return true, s.cache.ClearOpenOnLoad()
	}
	if entry.SheetName != pair.SheetName {
		return false, s.cache.PutOpenOnLoad(entry.SheetID, entry.SheetName)
	}
	return false, nil
}

// CachedEntries returns the last known sheet list without touching the network
func (s *Service) CachedEntries() ([]models.SheetEntry, error) {
	spreadsheetID, err := s.spreadsheetID()
	if err != nil {
		return nil, err
	}
	entries, ok, err := s.cache.GetSheetEntries(spreadsheetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.SheetEntry{}, nil
	}
	return entries, nil
}

// DisplayEntries returns the cached sheet list ordered for display: the open on load sheet,
// then the other active sheets, then archived ones.
func (s *Service) DisplayEntries() ([]models.SheetEntry, error) {
	entries, err := s.CachedEntries()
	if err != nil {
		return nil, err
	}
	pair, err := s.cache.GetOpenOnLoad()
	if err != nil {
		return nil, err
	}
	return reconcile.OrderForDisplay(entries, pair), nil
}

// Resolve finds a cached sheet by ID, or by exact name when no ID matches
func (s *Service) Resolve(sheet string) (models.SheetEntry, error) {
	entries, err := s.CachedEntries()
	if err != nil {
		return models.SheetEntry{}, err
	}
	if entry, ok := reconcile.FindByID(entries, sheet); ok {
		return entry, nil
	}
	if entry, ok := reconcile.FindByName(entries, sheet); ok {
		return entry, nil
	}
	return models.SheetEntry{}, fmt.Errorf("%w: %q", ErrUnknownSheet, sheet)
}

// ResolveFresh is Resolve, refreshing the sheet list once when the sheet is not cached
func (s *Service) ResolveFresh(ctx context.Context, sheet string) (models.SheetEntry, error) {
	entry, err := s.Resolve(sheet)
	if !errors.Is(err, ErrUnknownSheet) {
		return entry, err
	}
	if _, err := s.Refresh(ctx); err != nil {
		return models.SheetEntry{}, err
	}
	return s.Resolve(sheet)
}

// OpenView picks the view for a sheet argument, or the initial view when sheet is empty.
// A cache that knows no matching or active sheet is refreshed once first.
func (s *Service) OpenView(ctx context.Context, sheet string) (View, error) {
	if sheet != "" {
		entry, err := s.ResolveFresh(ctx, sheet)
		if err != nil {
			return View{}, err
		}
		return s.ViewFor(entry.SheetID)
	}

	view, err := s.InitialView()
	if err != nil || view.Kind != NoActiveSheets {
		return view, err
	}
	if _, err := s.Refresh(ctx); err != nil {
		return View{}, err
	}
	return s.InitialView()
}

// =============================================================================================

// LoadSheet fetches a budget from the spreadsheet and caches it. A renamed sheet is loaded
// under its new name; a deleted sheet yields ErrSheetDeleted.
func (s *Service) LoadSheet(ctx context.Context, sheetID string) (*Budget, error) {
	spreadsheetID, err := s.spreadsheetID()
	if err != nil {
		return nil, err
	}
	if err := s.checkNetwork(ctx); err != nil {
		return nil, err
	}

	name, exists, err := s.remote.SheetName(ctx, spreadsheetID, sheetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, s.handleDeletedSheet(ctx, sheetID)
	}

	sheet, err := s.remote.GetSheet(ctx, spreadsheetID, name)
	if err != nil {
		return nil, err
	}
	if err := s.cache.PutBudgetSheet(sheetID, sheet); err != nil {
		return nil, err
	}

	entry, err := s.followRename(spreadsheetID, sheetID, name)
	if err != nil {
		return nil, err
	}
	return &Budget{SheetEntry: entry, Sheet: sheet}, nil
}

func (s *Service) handleDeletedSheet(ctx context.Context, sheetID string) error {
	log.Warn().Str("sheet_id", sheetID).Msg("Sheet has been deleted")

	pair, err := s.cache.GetOpenOnLoad()
	if err != nil {
		return err
	}
	if pair.SheetID == sheetID {
		if err := s.cache.ClearOpenOnLoad(); err != nil {
			return err
		}
	}

	if _, err := s.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh sheet list after deletion")
	}
	return fmt.Errorf("%w: %s", ErrSheetDeleted, sheetID)
}

// followRename updates the cached entry when the sheet title changed since the last refresh
func (s *Service) followRename(spreadsheetID, sheetID, name string) (models.SheetEntry, error) {
	entries, _, err := s.cache.GetSheetEntries(spreadsheetID)
	if err != nil {
		return models.SheetEntry{}, err
	}

	entry, ok := reconcile.FindByID(entries, sheetID)
	if !ok {
		return models.SheetEntry{SheetName: name, SheetID: sheetID}, nil
	}
	if entry.SheetName == name {
		return entry, nil
	}

	log.Info().
		Str("sheet_id", sheetID).
		Str("old_name", entry.SheetName).
		Str("new_name", name).
		Msg("Sheet was renamed")

	renamed, _ := reconcile.SetName(entries, sheetID, name)
	if err := s.cache.PutSheetEntries(spreadsheetID, renamed); err != nil {
		return models.SheetEntry{}, err
	}
	if _, err := s.healOpenOnLoad(renamed); err != nil {
		return models.SheetEntry{}, err
	}
	entry.SheetName = name
	return entry, nil
}

// CachedSheet returns the last loaded snapshot of a sheet
func (s *Service) CachedSheet(sheetID string) (*models.BudgetSheet, bool, error) {
	return s.cache.GetBudgetSheet(sheetID)
}

// AddExpense appends an expense to an active budget. The amount is validated before any
// request is made and an empty date means today. The cached snapshot is updated in place
// since the spreadsheet may not reflect the new row right away.
func (s *Service) AddExpense(ctx context.Context, sheetID, date, description, amountText string) (*models.BudgetSheet, error) {
	amount, err := models.ParseAmount(amountText)
	if err != nil {
		return nil, err
	}

	spreadsheetID, err := s.spreadsheetID()
	if err != nil {
		return nil, err
	}
	entry, err := s.activeEntry(spreadsheetID, sheetID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(date) == "" {
		date = s.now().Format(DateFormat)
	}
	expense := models.Expense{Date: date, Description: description, Amount: amount}

	if err := s.checkNetwork(ctx); err != nil {
		return nil, err
	}
	if err := s.remote.AppendExpense(ctx, spreadsheetID, entry.SheetName, expense); err != nil {
		return nil, err
	}

	log.Info().
		Str("sheet", entry.SheetName).
		Str("date", date).
		Int("amount", amount).
		Msg("Added expense")

	sheet, ok, err := s.cache.GetBudgetSheet(sheetID)
	if err != nil || !ok {
		return nil, err
	}
	sheet.AddExpense(expense)
	if err := s.cache.PutBudgetSheet(sheetID, sheet); err != nil {
		return nil, err
	}
	return sheet, nil
}

// AddBudget creates a new sheet with the budget header and refreshes the sheet list
func (s *Service) AddBudget(ctx context.Context, name string, toSpend, runningLeftover int) (models.SheetEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.SheetEntry{}, ErrEmptyName
	}

	spreadsheetID, err := s.spreadsheetID()
	if err != nil {
		return models.SheetEntry{}, err
	}
	entries, err := s.CachedEntries()
	if err != nil {
		return models.SheetEntry{}, err
	}
	if _, ok := reconcile.FindByName(entries, name); ok {
		return models.SheetEntry{}, fmt.Errorf("%w: %q", ErrDuplicateBudget, name)
	}
	if err := s.checkNetwork(ctx); err != nil {
		return models.SheetEntry{}, err
	}

	sheet := &models.BudgetSheet{ToSpend: toSpend, RunningLeftover: runningLeftover, Expenses: []models.Expense{}}
	sheetID, err := s.remote.AddSheet(ctx, spreadsheetID, name, sheet)
	if err != nil {
		return models.SheetEntry{}, err
	}
	if err := s.cache.PutBudgetSheet(sheetID, sheet); err != nil {
		return models.SheetEntry{}, err
	}

	if _, err := s.Refresh(ctx); err != nil {
		return models.SheetEntry{}, err
	}
	return models.SheetEntry{SheetName: name, SheetID: sheetID}, nil
}

func (s *Service) Archive(ctx context.Context, sheetID string) error {
	return s.setArchived(ctx, sheetID, true)
}

func (s *Service) Unarchive(ctx context.Context, sheetID string) error {
	return s.setArchived(ctx, sheetID, false)
}

func (s *Service) setArchived(ctx context.Context, sheetID string, archived bool) error {
	spreadsheetID, err := s.spreadsheetID()
	if err != nil {
		return err
	}

	// reconcile first so sheets deleted since the last refresh are not written back
	current, err := s.Refresh(ctx)
	if err != nil {
		return err
	}
	updated, ok := reconcile.SetArchived(current.Entries, sheetID, archived)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSheet, sheetID)
	}
	if err := s.remote.UpdateMetadata(ctx, spreadsheetID, updated); err != nil {
		return err
	}
	if err := s.cache.PutSheetEntries(spreadsheetID, updated); err != nil {
		return err
	}

	if archived {
		pair, err := s.cache.GetOpenOnLoad()
		if err != nil {
			return err
		}
		if pair.SheetID == sheetID {
			if err := s.cache.ClearOpenOnLoad(); err != nil {
				return err
			}
		}
	}

	log.Info().Str("sheet_id", sheetID).Bool("archived", archived).Msg("Changed archive status")
	return nil
}

// SetOpenOnLoad marks an active sheet as the one shown when the app starts
func (s *Service) SetOpenOnLoad(sheetID string) error {
	spreadsheetID, err := s.spreadsheetID()
	if err != nil {
		return err
	}
	entry, err := s.activeEntry(spreadsheetID, sheetID)
	if err != nil {
		return err
	}
	if err := s.cache.PutOpenOnLoad(entry.SheetID, entry.SheetName); err != nil {
		return err
	}
	log.Info().Str("sheet", entry.SheetName).Msg("Set open on load sheet")
	return nil
}

// InitialView picks what to show on start: the open on load sheet, else the first active
// sheet, else a placeholder.
func (s *Service) InitialView() (View, error) {
	if !s.cache.IsSpreadsheetIDValid() {
		return View{Kind: NoSpreadsheet}, nil
	}

	pair, err := s.cache.GetOpenOnLoad()
	if err != nil {
		return View{}, err
	}
	if pair.IsSet() {
		return View{Kind: ActiveBudget, SheetID: pair.SheetID, SheetName: pair.SheetName}, nil
	}

	entries, err := s.CachedEntries()
	if err != nil {
		return View{}, err
	}
	if entry, ok := reconcile.FirstActive(entries, ""); ok {
		return View{Kind: ActiveBudget, SheetID: entry.SheetID, SheetName: entry.SheetName}, nil
	}
	return View{Kind: NoActiveSheets}, nil
}

// ViewFor returns the budget view for a cached sheet
func (s *Service) ViewFor(sheetID string) (View, error) {
	entries, err := s.CachedEntries()
	if err != nil {
		return View{}, err
	}
	entry, ok := reconcile.FindByID(entries, sheetID)
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrUnknownSheet, sheetID)
	}
	kind := ActiveBudget
	if entry.Archived {
		kind = ArchivedBudget
	}
	return View{Kind: kind, SheetID: entry.SheetID, SheetName: entry.SheetName}, nil
}

// Settings returns the data for the settings view
func (s *Service) Settings() (SettingsInfo, error) {
	spreadsheetID, err := s.cache.GetSpreadsheetID()
	if err != nil {
		return SettingsInfo{}, err
	}
	pair, err := s.cache.GetOpenOnLoad()
	if err != nil {
		return SettingsInfo{}, err
	}
	info := SettingsInfo{SpreadsheetID: spreadsheetID, OpenOnLoad: pair}
	if spreadsheetID != "" {
		info.SpreadsheetURL = spreadsheetURL(spreadsheetID)
	}
	return info, nil
}

// ChangeSpreadsheet switches to another spreadsheet after checking it can be read. All
// cached data belongs to the old spreadsheet and is discarded.
func (s *Service) ChangeSpreadsheet(ctx context.Context, spreadsheetID string) (*RefreshResult, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, ErrNoSpreadsheet
	}
	if err := s.checkNetwork(ctx); err != nil {
		return nil, err
	}
	if !s.remote.ValidateSpreadsheetID(ctx, spreadsheetID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSheetID, spreadsheetID)
	}

	if err := s.cache.Clear(); err != nil {
		return nil, err
	}
	if err := s.cache.PutSpreadsheetID(spreadsheetID); err != nil {
		return nil, err
	}
	log.Info().Str("spreadsheet_id", spreadsheetID).Msg("Changed spreadsheet")

	return s.Refresh(ctx)
}

// SignOut drops all local data. Credentials are removed by the auth package.
func (s *Service) SignOut() error {
	return s.cache.Clear()
}

// SheetURL links to a sheet in the Google Sheets web app
func (s *Service) SheetURL(sheetID string) (string, error) {
	spreadsheetID, err := s.spreadsheetID()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#gid=%s", spreadsheetURL(spreadsheetID), sheetID), nil
}

// =============================================================================================

func spreadsheetURL(spreadsheetID string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", spreadsheetID)
}

func (s *Service) spreadsheetID() (string, error) {
	id, err := s.cache.GetSpreadsheetID()
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", ErrNoSpreadsheet
	}
	return id, nil
}

// checkNetwork runs before every remote call
func (s *Service) checkNetwork(ctx context.Context) error {
	if s.remote == nil {
		return ErrAuthRequired
	}
	if !s.online(ctx) {
		return ErrNoNetwork
	}
	return nil
}

// activeEntry finds a cached sheet that may still take expenses
func (s *Service) activeEntry(spreadsheetID, sheetID string) (models.SheetEntry, error) {
	entries, _, err := s.cache.GetSheetEntries(spreadsheetID)
	if err != nil {
		return models.SheetEntry{}, err
	}
	entry, ok := reconcile.FindByID(entries, sheetID)
	if !ok {
		return models.SheetEntry{}, fmt.Errorf("%w: %s", ErrUnknownSheet, sheetID)
	}
	if entry.Archived {
		return models.SheetEntry{}, fmt.Errorf("%w: %s", ErrArchived, entry.SheetName)
	}
	return entry, nil
}
