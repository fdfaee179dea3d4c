package budget

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"sheet_budget/internal/cache"
	"sheet_budget/internal/models"
)

const testSpreadsheetID = "spreadsheet-1"

type fakeRemote struct {
	mutex       sync.Mutex
	metadata    []models.SheetEntry
	tabs        []models.SheetEntry
	sheets      map[string]*models.BudgetSheet
	valid       map[string]bool
	appended    []models.Expense
	updates     int
	calls       int
	nextID      int
	propertyErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		sheets: make(map[string]*models.BudgetSheet),
		valid:  map[string]bool{testSpreadsheetID: true},
		nextID: 100,
	}
}

func (f *fakeRemote) addTab(name, id string, sheet *models.BudgetSheet) {
	f.tabs = append(f.tabs, models.SheetEntry{SheetName: name, SheetID: id})
	f.sheets[name] = sheet
}

func (f *fakeRemote) callCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.calls
}

func (f *fakeRemote) GetSheet(_ context.Context, _, sheetName string) (*models.BudgetSheet, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	sheet, ok := f.sheets[sheetName]
	if !ok {
		return nil, fmt.Errorf("no sheet %q", sheetName)
	}
	out := *sheet
	out.Expenses = append([]models.Expense{}, sheet.Expenses...)
	return &out, nil
}

func (f *fakeRemote) AppendExpense(_ context.Context, _, sheetName string, expense models.Expense) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	f.appended = append(f.appended, expense)
	if sheet, ok := f.sheets[sheetName]; ok {
		sheet.AddExpense(expense)
	}
	return nil
}

func (f *fakeRemote) AddSheet(_ context.Context, _, sheetName string, budget *models.BudgetSheet) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	id := strconv.Itoa(f.nextID)
	f.nextID++
	f.tabs = append(f.tabs, models.SheetEntry{SheetName: sheetName, SheetID: id})
	f.sheets[sheetName] = budget
	return id, nil
}

func (f *fakeRemote) GetMetadata(context.Context, string) ([]models.SheetEntry, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	return append([]models.SheetEntry{}, f.metadata...), nil
}

func (f *fakeRemote) UpdateMetadata(_ context.Context, _ string, entries []models.SheetEntry) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	f.updates++
	f.metadata = append([]models.SheetEntry{}, entries...)
	return nil
}

func (f *fakeRemote) GetProperties(context.Context, string) ([]models.SheetEntry, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	if f.propertyErr != nil {
		return nil, f.propertyErr
	}
	return append([]models.SheetEntry{}, f.tabs...), nil
}

func (f *fakeRemote) SheetName(_ context.Context, _, sheetID string) (string, bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	for _, tab := range f.tabs {
		if tab.SheetID == sheetID {
			return tab.SheetName, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeRemote) ValidateSpreadsheetID(_ context.Context, spreadsheetID string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls++
	return f.valid[spreadsheetID]
}

func setupService(t *testing.T, remote *fakeRemote) (*Service, *cache.Cache) {
	t.Helper()
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	if err := c.PutSpreadsheetID(testSpreadsheetID); err != nil {
		t.Fatalf("Failed to store spreadsheet ID: %v", err)
	}

	clock := func() time.Time { return time.Date(2024, time.March, 7, 12, 0, 0, 0, time.UTC) }
	return NewService(remote, c, WithNetworkChecker(AlwaysOnline), WithClock(clock)), c
}

func entry(name, id string, archived bool) models.SheetEntry {
	return models.SheetEntry{SheetName: name, SheetID: id, Archived: archived}
}

func sameEntries(a, b []models.SheetEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRefreshMergesAndPushes(t *testing.T) {
	remote := newFakeRemote()
	remote.metadata = []models.SheetEntry{entry("A", "1", true)}
	remote.addTab("A", "1", &models.BudgetSheet{})
	remote.addTab("B", "2", &models.BudgetSheet{})
	svc, c := setupService(t, remote)

	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	expected := []models.SheetEntry{entry("A", "1", true), entry("B", "2", false)}
	if !sameEntries(result.Entries, expected) {
		t.Errorf("Expected %v, got %v", expected, result.Entries)
	}
	if !result.Pushed || remote.updates != 1 {
		t.Errorf("Expected one metadata push, got pushed=%t updates=%d", result.Pushed, remote.updates)
	}
	if len(result.Changes.Added) != 1 {
		t.Errorf("Expected 1 added sheet, got %d", len(result.Changes.Added))
	}

	cached, ok, err := c.GetSheetEntries(testSpreadsheetID)
	if err != nil || !ok || !sameEntries(cached, expected) {
		t.Errorf("Expected cached %v, got %v (ok=%t err=%v)", expected, cached, ok, err)
	}
}

func TestRefreshWithoutChangesDoesNotPush(t *testing.T) {
	remote := newFakeRemote()
	remote.metadata = []models.SheetEntry{entry("A", "1", false)}
	remote.addTab("A", "1", &models.BudgetSheet{})
	svc, _ := setupService(t, remote)

	result, err := svc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if result.Pushed || remote.updates != 0 {
		t.Errorf("Expected no push, got pushed=%t updates=%d", result.Pushed, remote.updates)
	}
	if !result.Changes.Empty() {
		t.Errorf("Expected no changes, got %+v", result.Changes)
	}
}

func TestRefreshHealsOpenOnLoad(t *testing.T) {
	t.Run("deleted sheet is cleared", func(t *testing.T) {
		remote := newFakeRemote()
		remote.metadata = []models.SheetEntry{entry("A", "1", false), entry("B", "2", false)}
		remote.addTab("A", "1", &models.BudgetSheet{})
		svc, c := setupService(t, remote)
		c.PutOpenOnLoad("2", "B")

		result, err := svc.Refresh(context.Background())
		if err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if !result.OpenOnLoadCleared || c.IsOpenOnLoadValid() {
			t.Error("Expected open on load to be cleared")
		}
	})

	t.Run("renamed sheet is followed", func(t *testing.T) {
		remote := newFakeRemote()
		remote.metadata = []models.SheetEntry{entry("A", "1", false)}
		remote.addTab("Renamed", "1", &models.BudgetSheet{})
		svc, c := setupService(t, remote)
		c.PutOpenOnLoad("1", "A")

		if _, err := svc.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		pair, _ := c.GetOpenOnLoad()
		if pair.SheetName != "Renamed" || pair.SheetID != "1" {
			t.Errorf("Expected open on load to follow rename, got %v", pair)
		}
	})
}

func TestRefreshErrors(t *testing.T) {
	t.Run("no network", func(t *testing.T) {
		remote := newFakeRemote()
		svc, _ := setupService(t, remote)
		svc.online = func(context.Context) bool { return false }

		_, err := svc.Refresh(context.Background())
		if !errors.Is(err, ErrNoNetwork) {
			t.Errorf("Expected ErrNoNetwork, got %v", err)
		}
		if remote.callCount() != 0 {
			t.Errorf("Expected no remote calls, got %d", remote.callCount())
		}
	})

	t.Run("no spreadsheet", func(t *testing.T) {
		svc, c := setupService(t, newFakeRemote())
		c.Clear()

		if _, err := svc.Refresh(context.Background()); !errors.Is(err, ErrNoSpreadsheet) {
			t.Errorf("Expected ErrNoSpreadsheet, got %v", err)
		}
	})

	t.Run("remote failure", func(t *testing.T) {
		remote := newFakeRemote()
		remote.propertyErr = errors.New("boom")
		svc, _ := setupService(t, remote)

		if _, err := svc.Refresh(context.Background()); err == nil {
			t.Error("Expected remote error to propagate")
		}
		if remote.updates != 0 {
			t.Errorf("Expected no metadata push, got %d", remote.updates)
		}
	})
}

func TestLoadSheetFollowsRename(t *testing.T) {
	remote := newFakeRemote()
	remote.addTab("New", "1", &models.BudgetSheet{ToSpend: 100, Expenses: []models.Expense{{Date: "1/1/2024", Description: "x", Amount: 5}}})
	svc, c := setupService(t, remote)
	c.PutSheetEntries(testSpreadsheetID, []models.SheetEntry{entry("Old", "1", false)})

	budget, err := svc.LoadSheet(context.Background(), "1")
	if err != nil {
		t.Fatalf("LoadSheet failed: %v", err)
	}
	if budget.SheetName != "New" || budget.Sheet.Leftover() != 95 {
		t.Errorf("Expected New with leftover 95, got %s with %d", budget.SheetName, budget.Sheet.Leftover())
	}

	cached, ok, _ := svc.CachedSheet("1")
	if !ok || cached.Leftover() != 95 {
		t.Errorf("Expected cached snapshot, got %v ok=%t", cached, ok)
	}
	entries, _ := svc.CachedEntries()
	if len(entries) != 1 || entries[0].SheetName != "New" {
		t.Errorf("Expected cached entry renamed, got %v", entries)
	}
}

func TestLoadSheetDeleted(t *testing.T) {
	remote := newFakeRemote()
	remote.metadata = []models.SheetEntry{entry("Gone", "1", false)}
	svc, c := setupService(t, remote)
	c.PutSheetEntries(testSpreadsheetID, remote.metadata)
	c.PutOpenOnLoad("1", "Gone")

	_, err := svc.LoadSheet(context.Background(), "1")
	if !errors.Is(err, ErrSheetDeleted) {
		t.Fatalf("Expected ErrSheetDeleted, got %v", err)
	}
	if c.IsOpenOnLoadValid() {
		t.Error("Expected open on load to be cleared")
	}
	entries, _ := svc.CachedEntries()
	if len(entries) != 0 {
		t.Errorf("Expected deleted sheet dropped from cache, got %v", entries)
	}
}

func TestAddExpense(t *testing.T) {
	remote := newFakeRemote()
	remote.addTab("Food", "1", &models.BudgetSheet{ToSpend: 50})
	remote.addTab("Old", "2", &models.BudgetSheet{})
	svc, c := setupService(t, remote)
	c.PutSheetEntries(testSpreadsheetID, []models.SheetEntry{entry("Food", "1", false), entry("Old", "2", true)})
	c.PutBudgetSheet("1", &models.BudgetSheet{ToSpend: 50, Expenses: []models.Expense{}})
	ctx := context.Background()

	if _, err := svc.AddExpense(ctx, "1", "", "Lunch", "12.5"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
	if remote.callCount() != 0 {
		t.Errorf("Expected invalid amount to be rejected before any request, got %d calls", remote.callCount())
	}

	if _, err := svc.AddExpense(ctx, "2", "", "Lunch", "12"); !errors.Is(err, ErrArchived) {
		t.Errorf("Expected ErrArchived, got %v", err)
	}
	if _, err := svc.AddExpense(ctx, "9", "", "Lunch", "12"); !errors.Is(err, ErrUnknownSheet) {
		t.Errorf("Expected ErrUnknownSheet, got %v", err)
	}

	sheet, err := svc.AddExpense(ctx, "1", "", "Lunch", "12")
	if err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if len(remote.appended) != 1 || remote.appended[0].Date != "3/7/2024" {
		t.Errorf("Expected one expense dated 3/7/2024, got %v", remote.appended)
	}
	if sheet == nil || sheet.Leftover() != 38 {
		t.Fatalf("Expected updated snapshot with leftover 38, got %v", sheet)
	}

	cached, _, _ := c.GetBudgetSheet("1")
	if len(cached.Expenses) != 1 || cached.Expenses[0].Description != "Lunch" {
		t.Errorf("Expected cached snapshot to include the expense, got %v", cached)
	}

	if _, err := svc.AddExpense(ctx, "1", "12/31/2023", "Dinner", "3"); err != nil {
		t.Fatalf("AddExpense failed: %v", err)
	}
	if remote.appended[1].Date != "12/31/2023" {
		t.Errorf("Expected explicit date kept, got %s", remote.appended[1].Date)
	}
}

func TestAddBudget(t *testing.T) {
	remote := newFakeRemote()
	remote.metadata = []models.SheetEntry{entry("Food", "1", false)}
	remote.addTab("Food", "1", &models.BudgetSheet{})
	svc, c := setupService(t, remote)
	c.PutSheetEntries(testSpreadsheetID, remote.metadata)
	ctx := context.Background()

	if _, err := svc.AddBudget(ctx, "Food", 10, 0); !errors.Is(err, ErrDuplicateBudget) {
		t.Errorf("Expected ErrDuplicateBudget, got %v", err)
	}
	if _, err := svc.AddBudget(ctx, "  ", 10, 0); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}

	created, err := svc.AddBudget(ctx, "Travel", 800, 25)
	if err != nil {
		t.Fatalf("AddBudget failed: %v", err)
	}
	if created.SheetID != "100" {
		t.Errorf("Expected sheet ID 100, got %s", created.SheetID)
	}

	entries, _ := svc.CachedEntries()
	expected := []models.SheetEntry{entry("Food", "1", false), entry("Travel", "100", false)}
	if !sameEntries(entries, expected) {
		t.Errorf("Expected %v, got %v", expected, entries)
	}
	if remote.sheets["Travel"].Spendable() != 825 {
		t.Errorf("Expected spendable 825, got %d", remote.sheets["Travel"].Spendable())
	}
}

func TestArchiveAndUnarchive(t *testing.T) {
	remote := newFakeRemote()
	remote.metadata = []models.SheetEntry{entry("A", "1", false), entry("B", "2", false)}
	remote.addTab("A", "1", &models.BudgetSheet{})
	remote.addTab("B", "2", &models.BudgetSheet{})
	svc, c := setupService(t, remote)
	c.PutOpenOnLoad("1", "A")
	ctx := context.Background()

	if err := svc.Archive(ctx, "1"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if !remote.metadata[0].Archived {
		t.Error("Expected metadata to mark sheet 1 archived")
	}
	if c.IsOpenOnLoadValid() {
		t.Error("Expected archiving the open on load sheet to clear it")
	}
	entries, _ := svc.CachedEntries()
	if !entries[0].Archived {
		t.Error("Expected cached entries to be updated")
	}

	if err := svc.Unarchive(ctx, "1"); err != nil {
		t.Fatalf("Unarchive failed: %v", err)
	}
	if remote.metadata[0].Archived {
		t.Error("Expected sheet 1 unarchived")
	}

	if err := svc.Archive(ctx, "9"); !errors.Is(err, ErrUnknownSheet) {
		t.Errorf("Expected ErrUnknownSheet, got %v", err)
	}
}

func TestArchiveDropsDeletedSheets(t *testing.T) {
	remote := newFakeRemote()
	remote.metadata = []models.SheetEntry{entry("A", "1", false), entry("Gone", "2", false)}
	remote.addTab("A", "1", &models.BudgetSheet{})
	svc, _ := setupService(t, remote)

	if err := svc.Archive(context.Background(), "1"); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	expected := []models.SheetEntry{entry("A", "1", true)}
	if !sameEntries(remote.metadata, expected) {
		t.Errorf("Expected metadata %v, got %v", expected, remote.metadata)
	}
	cached, _ := svc.CachedEntries()
	if !sameEntries(cached, expected) {
		t.Errorf("Expected cached entries %v, got %v", expected, cached)
	}

	if err := svc.Archive(context.Background(), "2"); !errors.Is(err, ErrUnknownSheet) {
		t.Errorf("Expected deleted sheet to be unknown, got %v", err)
	}
}

func TestSetOpenOnLoad(t *testing.T) {
	svc, c := setupService(t, newFakeRemote())
	c.PutSheetEntries(testSpreadsheetID, []models.SheetEntry{entry("A", "1", false), entry("B", "2", true)})

	if err := svc.SetOpenOnLoad("2"); !errors.Is(err, ErrArchived) {
		t.Errorf("Expected ErrArchived, got %v", err)
	}
	if err := svc.SetOpenOnLoad("1"); err != nil {
		t.Fatalf("SetOpenOnLoad failed: %v", err)
	}
	pair, _ := c.GetOpenOnLoad()
	if pair != (models.NameIDPair{SheetName: "A", SheetID: "1"}) {
		t.Errorf("Expected A/1, got %v", pair)
	}
}

func TestInitialView(t *testing.T) {
	svc, c := setupService(t, newFakeRemote())

	view, _ := svc.InitialView()
	if view.Kind != NoActiveSheets {
		t.Errorf("Expected NoActiveSheets, got %v", view)
	}

	c.PutSheetEntries(testSpreadsheetID, []models.SheetEntry{entry("A", "1", true), entry("B", "2", false)})
	view, _ = svc.InitialView()
	if view.Kind != ActiveBudget || view.SheetID != "2" {
		t.Errorf("Expected first active budget B, got %v", view)
	}

	c.PutOpenOnLoad("3", "C")
	view, _ = svc.InitialView()
	if view.Kind != ActiveBudget || view.SheetName != "C" {
		t.Errorf("Expected open on load budget C, got %v", view)
	}

	c.Clear()
	view, _ = svc.InitialView()
	if view.Kind != NoSpreadsheet {
		t.Errorf("Expected NoSpreadsheet, got %v", view)
	}
}

func TestViewForAndDisplayOrder(t *testing.T) {
	svc, c := setupService(t, newFakeRemote())
	c.PutSheetEntries(testSpreadsheetID, []models.SheetEntry{entry("A", "1", true), entry("B", "2", false), entry("C", "3", false)})
	c.PutOpenOnLoad("3", "C")

	view, err := svc.ViewFor("1")
	if err != nil || view.Kind != ArchivedBudget {
		t.Errorf("Expected archived view, got %v err=%v", view, err)
	}

	ordered, _ := svc.DisplayEntries()
	expected := []models.SheetEntry{entry("C", "3", false), entry("B", "2", false), entry("A", "1", true)}
	if !sameEntries(ordered, expected) {
		t.Errorf("Expected %v, got %v", expected, ordered)
	}

	byName, err := svc.Resolve("B")
	if err != nil || byName.SheetID != "2" {
		t.Errorf("Expected B to resolve to 2, got %v err=%v", byName, err)
	}
	if _, err := svc.Resolve("Z"); !errors.Is(err, ErrUnknownSheet) {
		t.Errorf("Expected ErrUnknownSheet, got %v", err)
	}
}

func TestChangeSpreadsheet(t *testing.T) {
	remote := newFakeRemote()
	remote.valid["spreadsheet-2"] = true
	remote.addTab("Fresh", "5", &models.BudgetSheet{})
	svc, c := setupService(t, remote)
	c.PutOpenOnLoad("1", "Stale")
	c.PutBudgetSheet("1", &models.BudgetSheet{ToSpend: 1})
	ctx := context.Background()

	if _, err := svc.ChangeSpreadsheet(ctx, "bogus"); !errors.Is(err, ErrInvalidSheetID) {
		t.Errorf("Expected ErrInvalidSheetID, got %v", err)
	}
	if id, _ := c.GetSpreadsheetID(); id != testSpreadsheetID {
		t.Errorf("Expected spreadsheet unchanged after failed validation, got %s", id)
	}

	result, err := svc.ChangeSpreadsheet(ctx, " spreadsheet-2 ")
	if err != nil {
		t.Fatalf("ChangeSpreadsheet failed: %v", err)
	}
	if id, _ := c.GetSpreadsheetID(); id != "spreadsheet-2" {
		t.Errorf("Expected spreadsheet-2, got %s", id)
	}
	if c.IsOpenOnLoadValid() {
		t.Error("Expected old open on load to be cleared")
	}
	if _, ok, _ := c.GetBudgetSheet("1"); ok {
		t.Error("Expected old sheet snapshot to be cleared")
	}
	if len(result.Entries) != 1 || result.Entries[0].SheetName != "Fresh" {
		t.Errorf("Expected new spreadsheet entries, got %v", result.Entries)
	}
}

func TestSignOutAndSheetURL(t *testing.T) {
	svc, c := setupService(t, newFakeRemote())

	url, err := svc.SheetURL("734")
	if err != nil {
		t.Fatalf("SheetURL failed: %v", err)
	}
	if url != "https://docs.google.com/spreadsheets/d/spreadsheet-1/edit#gid=734" {
		t.Errorf("Unexpected URL %s", url)
	}

	if err := svc.SignOut(); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if c.IsSpreadsheetIDValid() {
		t.Error("Expected sign out to clear the spreadsheet ID")
	}
	if _, err := svc.SheetURL("734"); !errors.Is(err, ErrNoSpreadsheet) {
		t.Errorf("Expected ErrNoSpreadsheet, got %v", err)
	}
}

func TestCacheOnlyService(t *testing.T) {
	_, c := setupService(t, newFakeRemote())
	if err := c.PutSheetEntries(testSpreadsheetID, []models.SheetEntry{entry("Food", "1", false)}); err != nil {
		t.Fatalf("Failed to seed entries: %v", err)
	}
	svc := NewService(nil, c, WithNetworkChecker(AlwaysOnline))

	entries, err := svc.DisplayEntries()
	if err != nil || len(entries) != 1 {
		t.Errorf("Expected cached entries to be readable, got %v %v", entries, err)
	}
	if _, err := svc.Refresh(context.Background()); !errors.Is(err, ErrAuthRequired) {
		t.Errorf("Expected ErrAuthRequired from Refresh, got %v", err)
	}
	if _, err := svc.AddExpense(context.Background(), "1", "", "Lunch", "12"); !errors.Is(err, ErrAuthRequired) {
		t.Errorf("Expected ErrAuthRequired from AddExpense, got %v", err)
	}
}

func TestOpenViewRefreshesEmptyCache(t *testing.T) {
	remote := newFakeRemote()
	remote.addTab("Food", "1", &models.BudgetSheet{ToSpend: 50})
	svc, _ := setupService(t, remote)
	ctx := context.Background()

	view, err := svc.OpenView(ctx, "")
	if err != nil {
		t.Fatalf("OpenView failed: %v", err)
	}
	if view.Kind != ActiveBudget || view.SheetID != "1" {
		t.Errorf("Expected Food after refreshing, got %v", view)
	}

	remote.addTab("Gas", "2", &models.BudgetSheet{})
	view, err = svc.OpenView(ctx, "Gas")
	if err != nil {
		t.Fatalf("OpenView failed: %v", err)
	}
	if view.Kind != ActiveBudget || view.SheetName != "Gas" {
		t.Errorf("Expected Gas found after refreshing, got %v", view)
	}

	if _, err := svc.OpenView(ctx, "Missing"); !errors.Is(err, ErrUnknownSheet) {
		t.Errorf("Expected ErrUnknownSheet, got %v", err)
	}
}

func TestOpenViewUsesCacheFirst(t *testing.T) {
	remote := newFakeRemote()
	svc, c := setupService(t, remote)
	c.PutSheetEntries(testSpreadsheetID, []models.SheetEntry{entry("Food", "1", false)})

	view, err := svc.OpenView(context.Background(), "Food")
	if err != nil || view.SheetID != "1" {
		t.Errorf("Expected cached Food, got %v err=%v", view, err)
	}
	if remote.callCount() != 0 {
		t.Errorf("Expected no remote calls, got %d", remote.callCount())
	}

	c.Clear()
	view, err = svc.OpenView(context.Background(), "")
	if err != nil || view.Kind != NoSpreadsheet {
		t.Errorf("Expected NoSpreadsheet without refreshing, got %v err=%v", view, err)
	}
}
