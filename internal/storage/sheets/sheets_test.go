package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ledger/internal/core"
	"ledger/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func TestToRowsWritesHeaderFirst(t *testing.T) {
	rows := toRows([]core.Transaction{
		{Name: "Salary", Category: core.Income, Date: "2024-01-01", Amount: core.MustAmount("1000.50")},
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "name" || rows[0][3] != "amount" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "Salary" || rows[1][1] != "income" || rows[1][3] != "1000.5" {
		t.Errorf("unexpected row %v", rows[1])
	}
}

func TestFromRows(t *testing.T) {
	values := [][]any{
		{"name", "category", "date", "amount"},
		{"Salary", "income", "2024-01-01", float64(1000)},
		{},
		{"Rent", "expense", "2024-01-02", "400.25"},
		{"Gift", "other", "", "5"},
	}
	list, err := fromRows(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(list))
	}
	want := []core.Transaction{
		{Name: "Salary", Category: core.Income, Date: "2024-01-01", Amount: core.MustAmount("1000")},
		{Name: "Rent", Category: core.Expense, Date: "2024-01-02", Amount: core.MustAmount("400.25")},
		{Name: "Gift", Category: "other", Date: "", Amount: core.MustAmount("5")},
	}
	for i := range want {
		if !list[i].Equal(want[i]) {
			t.Errorf("row %d: got %+v, want %+v", i, list[i], want[i])
		}
	}
}

func TestFromRowsWithoutHeader(t *testing.T) {
	list, err := fromRows([][]any{{"Coffee", "expense", "", "3.5"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Coffee" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestFromRowsRejectsNonNumericAmount(t *testing.T) {
	_, err := fromRows([][]any{
		{"name", "category", "date", "amount"},
		{"Broken", "income", "", "abc"},
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestRowsRoundTrip(t *testing.T) {
	in := []core.Transaction{
		{Name: "Salary", Category: core.Income, Date: "2024-01-01", Amount: core.MustAmount("1000")},
		{Name: "Rent", Category: core.Expense, Date: "2024-01-02", Amount: core.MustAmount("0.1")},
		{Name: "  Rent ", Category: core.Expense, Date: "", Amount: core.MustAmount("3")},
		{Name: "\tTabbed", Category: core.Income, Date: "", Amount: core.MustAmount("4")},
	}
	out, err := fromRows(toRows(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d", len(out))
	}
	for i := range in {
		if !out[i].Equal(in[i]) {
			t.Errorf("row %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

// fakeSheet serves the values endpoints the backend calls and records them.
type fakeSheet struct {
	mu        sync.Mutex
	calls     []string
	updated   [][]any
	updateErr bool
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update "+r.URL.Path)
		if f.updateErr {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":400,"message":"quota"}}`)
			return
		}
		var vr struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.updated = vr.Values
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.calls = append(f.calls, "clear "+r.URL.Path)
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get "+r.URL.Path)
		_, _ = io.WriteString(w, `{"values":[["name","category","date","amount"],["Salary","income","2024-01-01","1000"],["Rent","expense","2024-01-02","400"]]}`)
	default:
		http.NotFound(w, r)
	}
}

func newFakeClient(t *testing.T, fake *fakeSheet) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return &Client{svc: svc, spreadsheetID: "sheet-id", sheetName: DefaultSheetName, logger: log.Discard()}
}

func TestWriteFailureLeavesSheetUntouched(t *testing.T) {
	fake := &fakeSheet{updateErr: true}
	c := newFakeClient(t, fake)

	err := c.Write(context.Background(), []core.Transaction{
		{Name: "Salary", Category: core.Income, Amount: core.MustAmount("1000")},
	})
	if err == nil {
		t.Fatal("expected update error")
	}
	for _, call := range fake.calls {
		if strings.HasPrefix(call, "clear") {
			t.Fatalf("nothing may be cleared when the update fails: %v", fake.calls)
		}
	}
}

func TestWriteBlanksRowsOfLongerPreviousList(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSheet{}
	c := newFakeClient(t, fake)

	list, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("read %d records", len(list))
	}

	if err := c.Write(ctx, list[:1]); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(fake.calls) != 3 || !strings.HasPrefix(fake.calls[1], "update") || !strings.HasPrefix(fake.calls[2], "clear") {
		t.Fatalf("expected get, update then clear, got %v", fake.calls)
	}
	if !strings.Contains(fake.calls[2], "A4:D") {
		t.Errorf("clear should start below the written rows: %s", fake.calls[2])
	}
	if len(fake.updated) != 3 {
		t.Fatalf("update should cover the previous 3 rows, got %d", len(fake.updated))
	}
	got, err := fromRows(fake.updated)
	if err != nil {
		t.Fatalf("parse written rows: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Salary" {
		t.Fatalf("written rows decode to %+v", got)
	}
}
