package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"continuous-futures/internal/series"
)

var clz15 = series.ContractID{Product: "CL", Month: 'Z', Year: 2015}

func noopLogger() zerolog.Logger { return zerolog.Nop() }

func datasetHandler(t *testing.T, columns []string, rows [][]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/datasets/CME/CLZ2015/data.json") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "secret" {
			t.Fatalf("api key not forwarded: %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("order") != "asc" {
			t.Fatalf("rows must be requested in ascending order")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dataset_data": map[string]any{
				"column_names": columns,
				"data":         rows,
			},
		})
	}
}

func TestQuandlFetchSuccess(t *testing.T) {
	columns := []string{"Date", "Open", "High", "Low", "Last", "Change", "Settle", "Volume", "Previous Day Open Interest"}
	rows := [][]any{
		{"2015-11-02", 46.5, 47.0, 46.0, 46.8, nil, 46.9, 1000, 5000},
		{"2015-11-03", 46.9, 48.1, 46.7, 47.9, 1.0, 47.9, 1200, nil},
	}
	srv := httptest.NewServer(datasetHandler(t, columns, rows))
	defer srv.Close()

	q := NewQuandl(QuandlOptions{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second}, noopLogger())
	raw, err := q.FetchContract(context.Background(), "CME", clz15)
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if raw.Contract != clz15 {
		t.Fatalf("contract not propagated: %v", raw.Contract)
	}
	if len(raw.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(raw.Rows))
	}
	first := raw.Rows[0]
	if !first.Settle.Equal(decimal.RequireFromString("46.9")) {
		t.Fatalf("settle mismatch: %s", first.Settle)
	}
	if !first.OpenInterest.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("open interest mismatch: %s", first.OpenInterest)
	}
	if !raw.Rows[1].OpenInterest.IsZero() {
		t.Fatalf("null cells should decode as zero")
	}
	if want := time.Date(2015, 11, 3, 0, 0, 0, 0, time.UTC); !raw.Rows[1].Date.Equal(want) {
		t.Fatalf("date mismatch: %s", raw.Rows[1].Date)
	}
}

func TestQuandlMissingColumns(t *testing.T) {
	columns := []string{"Date", "Open", "High", "Low", "Last", "Volume"}
	srv := httptest.NewServer(datasetHandler(t, columns, [][]any{{"2015-11-02", 1, 1, 1, 1, 1}}))
	defer srv.Close()

	q := NewQuandl(QuandlOptions{BaseURL: srv.URL, APIKey: "secret"}, noopLogger())
	_, err := q.FetchContract(context.Background(), "CME", clz15)
	if !errors.Is(err, series.ErrValidation) {
		t.Fatalf("missing settle/open interest should be a validation error, got %v", err)
	}
}

func TestQuandlStatusClassification(t *testing.T) {
	cases := []struct {
		status    int
		kind      string
		retryable bool
	}{
		{http.StatusNotFound, KindNotFound, false},
		{http.StatusUnauthorized, KindAuth, false},
		{http.StatusTooManyRequests, KindRateLimited, true},
		{http.StatusBadGateway, KindServer, true},
		{http.StatusBadRequest, KindServer, false},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"quandl_error": map[string]string{"code": "QECx02", "message": "boom"},
			})
		}))

		q := NewQuandl(QuandlOptions{BaseURL: srv.URL, APIKey: "secret"}, noopLogger())
		_, err := q.FetchContract(context.Background(), "CME", clz15)
		srv.Close()

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("status %d: expected FetchError, got %v", tc.status, err)
		}
		if fe.Kind != tc.kind || fe.Retryable != tc.retryable || fe.Status != tc.status {
			t.Fatalf("status %d: got kind=%s retryable=%v", tc.status, fe.Kind, fe.Retryable)
		}
		if !errors.Is(err, ErrFetch) {
			t.Fatalf("status %d: should match ErrFetch", tc.status)
		}
		if !strings.Contains(err.Error(), "boom") {
			t.Fatalf("status %d: provider message lost: %v", tc.status, err)
		}
	}
}

func TestQuandlRequiresAPIKey(t *testing.T) {
	q := NewQuandl(QuandlOptions{BaseURL: "http://127.0.0.1:1"}, noopLogger())
	_, err := q.FetchContract(context.Background(), "CME", clz15)

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindAuth || fe.Retryable {
		t.Fatalf("missing api key should be a permanent auth failure, got %v", err)
	}
}
