package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type fakeTab struct {
	id     int64
	title  string
	values [][]interface{}
}

// fakeSheets speaks enough of the Sheets v4 REST API for the client under test
type fakeSheets struct {
	mutex            sync.Mutex
	spreadsheetID    string
	tabs             []*fakeTab
	nextID           int64
	metadata         *sheets.DeveloperMetadata
	metadataFailure  int
	metadataRequests []string
	valueQueries     []string
}

func newFakeSheets(spreadsheetID string) *fakeSheets {
	return &fakeSheets{spreadsheetID: spreadsheetID, nextID: 100}
}

func (f *fakeSheets) addTab(id int64, title string, values [][]interface{}) {
	f.tabs = append(f.tabs, &fakeTab{id: id, title: title, values: values})
}

func (f *fakeSheets) tabByRange(rng string) *fakeTab {
	name := rng
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		name = rng[:i]
	}
	if strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	for _, tab := range f.tabs {
		if tab.title == name {
			return tab
		}
	}
	return nil
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")

	if strings.HasSuffix(path, ":batchUpdate") {
		if strings.TrimSuffix(path, ":batchUpdate") != f.spreadsheetID {
			writeError(w, http.StatusNotFound, "Requested entity was not found.")
			return
		}
		f.batchUpdate(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 3)
	if parts[0] != f.spreadsheetID {
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}

	if len(parts) == 1 {
		resp := &sheets.Spreadsheet{SpreadsheetId: f.spreadsheetID}
		for _, tab := range f.tabs {
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{SheetId: tab.id, Title: tab.title},
			})
		}
		writeJSON(w, resp)
		return
	}

	switch {
	case parts[1] == "values" && strings.HasSuffix(parts[2], ":append"):
		tab := f.tabByRange(strings.TrimSuffix(parts[2], ":append"))
		if tab == nil {
			writeError(w, http.StatusBadRequest, "Unable to parse range")
			return
		}
		var body sheets.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		tab.values = append(tab.values, body.Values...)
		writeJSON(w, &sheets.AppendValuesResponse{SpreadsheetId: f.spreadsheetID})

	case parts[1] == "values":
		tab := f.tabByRange(parts[2])
		if tab == nil {
			writeError(w, http.StatusBadRequest, "Unable to parse range")
			return
		}
		f.valueQueries = append(f.valueQueries, r.URL.RawQuery)
		writeJSON(w, &sheets.ValueRange{Range: parts[2], Values: renderValues(tab.values, r.URL.Query())})

	case parts[1] == "developerMetadata":
		if f.metadataFailure != 0 {
			writeError(w, f.metadataFailure, "backend error")
			return
		}
		if f.metadata == nil {
			writeError(w, http.StatusNotFound, "No developer metadata with ID")
			return
		}
		writeJSON(w, f.metadata)

	default:
		writeError(w, http.StatusNotFound, "unknown path "+r.URL.Path)
	}
}

func (f *fakeSheets) batchUpdate(w http.ResponseWriter, r *http.Request) {
	var body sheets.BatchUpdateSpreadsheetRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := &sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: f.spreadsheetID}
	for _, req := range body.Requests {
		reply := &sheets.Response{}
		switch {
		case req.AddSheet != nil:
			tab := &fakeTab{id: f.nextID, title: req.AddSheet.Properties.Title}
			f.nextID++
			f.tabs = append(f.tabs, tab)
			reply.AddSheet = &sheets.AddSheetResponse{
				Properties: &sheets.SheetProperties{SheetId: tab.id, Title: tab.title},
			}
		case req.CreateDeveloperMetadata != nil:
			if f.metadata != nil {
				writeError(w, http.StatusBadRequest, "metadata already exists")
				return
			}
			f.metadata = req.CreateDeveloperMetadata.DeveloperMetadata
			f.metadataRequests = append(f.metadataRequests, "create")
		case req.UpdateDeveloperMetadata != nil:
			if f.metadata == nil {
				writeError(w, http.StatusBadRequest, "no metadata matches the filters")
				return
			}
			f.metadata = req.UpdateDeveloperMetadata.DeveloperMetadata
			f.metadataRequests = append(f.metadataRequests, "update")
		}
		resp.Replies = append(resp.Replies, reply)
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": code, "message": message},
	})
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

// renderValues mimics how Sheets returns cells entered as dates: a serial day number
// unless the caller asks for formatted date strings.
func renderValues(values [][]interface{}, query map[string][]string) [][]interface{} {
	if dateOption := query["dateTimeRenderOption"]; len(dateOption) > 0 && dateOption[0] == "FORMATTED_STRING" {
		return values
	}
	epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	rendered := make([][]interface{}, len(values))
	for i, row := range values {
		rendered[i] = make([]interface{}, len(row))
		for j, cell := range row {
			rendered[i][j] = cell
			if text, ok := cell.(string); ok {
				if date, err := time.Parse("1/2/2006", text); err == nil {
					rendered[i][j] = float64(date.Sub(epoch) / (24 * time.Hour))
				}
			}
		}
	}
	return rendered
}
