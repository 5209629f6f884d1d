package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chance-nelson/jobstats-db/db"
	"github.com/chance-nelson/jobstats-db/slurm"
)

type fakeReader struct {
	lastQuery db.Query
	records   []*slurm.UsageRecord
	accounts  []string
	fail      bool
}

func (f *fakeReader) ReadUsage(ctx context.Context, q db.Query) ([]*slurm.UsageRecord, error) {
	if f.fail {
		return nil, errors.New("Database on fire")
	}
	f.lastQuery = q
	return f.records, nil
}

func (f *fakeReader) ReadAccounts(ctx context.Context) ([]string, error) {
	if f.fail {
		return nil, errors.New("Database on fire")
	}
	return f.accounts, nil
}

func get(t *testing.T, mux *http.ServeMux, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestGetUsage(t *testing.T) {
	reader := &fakeReader{
		records: []*slurm.UsageRecord{
			&slurm.UsageRecord{
				Username:   "alice",
				Account:    "phys",
				Date:       time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
				HaveMemory: true,
				MemReq:     1024,
				MemUsed:    512,
				JobCount:   1,
			},
		},
	}
	mux := http.NewServeMux()
	registerAPI(mux, reader)

	w := get(t, mux, "/usage?from=2023-05-01&to=2023-05-07&account=phys&user=alice")
	if w.Code != 200 {
		t.Fatal(w.Code, w.Body.String())
	}
	q := reader.lastQuery
	if !q.From.Equal(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)) ||
		!q.To.Equal(time.Date(2023, 5, 7, 0, 0, 0, 0, time.UTC)) ||
		q.Account != "phys" || q.User != "alice" {
		t.Fatalf("Bad query: %+v", q)
	}
	var rows []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["username"] != "alice" || rows[0]["mem_req"] != 1024.0 {
		t.Fatalf("Bad body: %v", rows)
	}
	if rows[0]["cpu_time"] != nil {
		t.Fatalf("Absent group should be null: %v", rows[0])
	}
}

func TestGetUsageBadDate(t *testing.T) {
	mux := http.NewServeMux()
	registerAPI(mux, &fakeReader{})

	w := get(t, mux, "/usage?date=bletch")
	if w.Code != 422 {
		t.Fatal(w.Code, w.Body.String())
	}
	// A single date combined with a range is also rejected.
	w = get(t, mux, "/usage?date=2023-05-01&from=2023-05-01")
	if w.Code != 422 {
		t.Fatal(w.Code, w.Body.String())
	}
}

func TestGetUsageFailure(t *testing.T) {
	mux := http.NewServeMux()
	registerAPI(mux, &fakeReader{fail: true})

	w := get(t, mux, "/usage?date=2023-05-01")
	if w.Code != 500 {
		t.Fatal(w.Code, w.Body.String())
	}
}

func TestGetAccounts(t *testing.T) {
	mux := http.NewServeMux()
	registerAPI(mux, &fakeReader{accounts: []string{"chem", "phys"}})

	w := get(t, mux, "/accounts")
	if w.Code != 200 {
		t.Fatal(w.Code, w.Body.String())
	}
	var accounts []string
	if err := json.Unmarshal(w.Body.Bytes(), &accounts); err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 2 || accounts[0] != "chem" || accounts[1] != "phys" {
		t.Fatal(accounts)
	}
}
