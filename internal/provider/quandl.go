package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"continuous-futures/internal/series"
)

const (
	defaultQuandlBaseURL = "https://data.nasdaq.com/api/v3"
	defaultUserAgent     = "contchain/1.0"
)

// QuandlOptions parameterise the Quandl dataset client.
type QuandlOptions struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
}

// Quandl fetches futures contract datasets from the Quandl (Nasdaq Data Link) API.
type Quandl struct {
	opts    QuandlOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewQuandl constructs a Quandl client.
func NewQuandl(opts QuandlOptions, logger zerolog.Logger) *Quandl {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultQuandlBaseURL
	}

	return &Quandl{
		opts:    opts,
		logger:  logger.With().Str("component", "quandl").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchContract downloads the daily history of one contract in ascending date order.
func (q *Quandl) FetchContract(ctx context.Context, exchange string, contract series.ContractID) (series.RawContractSeries, error) {
	fail := func(status int, kind string, retryable bool, err error) (series.RawContractSeries, error) {
		return series.RawContractSeries{}, &FetchError{
			Exchange:  exchange,
			Contract:  contract,
			Status:    status,
			Kind:      kind,
			Retryable: retryable,
			Err:       err,
		}
	}

	if strings.TrimSpace(q.opts.APIKey) == "" {
		return fail(0, KindAuth, false, errors.New("api key not configured"))
	}

	endpoint := fmt.Sprintf("%s/datasets/%s/%s/data.json", q.baseURL, url.PathEscape(exchange), url.PathEscape(contract.String()))
	query := url.Values{}
	query.Set("order", "asc")
	query.Set("api_key", q.opts.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fail(0, KindTransport, false, err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(q.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", defaultUserAgent)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fail(0, KindTransport, ctx.Err() == nil, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, KindTransport, true, err)
	}

	if resp.StatusCode != http.StatusOK {
		kind, retryable := classifyStatus(resp.StatusCode)
		return fail(resp.StatusCode, kind, retryable, parseHTTPError(resp.StatusCode, payload))
	}

	var body datasetResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return fail(resp.StatusCode, KindDecode, false, err)
	}

	rows, err := decodeRows(contract, body.DatasetData.ColumnNames, body.DatasetData.Data)
	if err != nil {
		return series.RawContractSeries{}, err
	}

	q.logger.Debug().Str("exchange", exchange).Str("contract", contract.String()).Int("rows", len(rows)).Msg("contract fetched")
	return series.RawContractSeries{Contract: contract, Rows: rows}, nil
}

func classifyStatus(status int) (string, bool) {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound, false
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth, false
	case status == http.StatusTooManyRequests:
		return KindRateLimited, true
	case status == http.StatusRequestTimeout || status >= 500:
		return KindServer, true
	default:
		return KindServer, false
	}
}

type datasetResponse struct {
	DatasetData struct {
		ColumnNames []string            `json:"column_names"`
		Data        [][]json.RawMessage `json:"data"`
	} `json:"dataset_data"`
}

type errorResponse struct {
	QuandlError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"quandl_error"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.QuandlError.Message != "" {
		if apiErr.QuandlError.Code != "" {
			return fmt.Errorf("quandl api error (%d %s): %s", status, apiErr.QuandlError.Code, apiErr.QuandlError.Message)
		}
		return fmt.Errorf("quandl api error (%d): %s", status, apiErr.QuandlError.Message)
	}
	if len(payload) > 0 {
		return fmt.Errorf("quandl api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("quandl api error (%d)", status)
}

var columnAliases = map[string][]string{
	"date":          {"date"},
	"open":          {"open"},
	"high":          {"high"},
	"low":           {"low"},
	"settle":        {"settle"},
	"volume":        {"volume"},
	"open_interest": {"open interest", "prev. day open interest", "previous day open interest"},
}

func resolveColumns(names []string) (map[string]int, []string) {
	byName := make(map[string]int, len(names))
	for i, n := range names {
		byName[strings.ToLower(strings.TrimSpace(n))] = i
	}

	idx := make(map[string]int, len(columnAliases))
	var missing []string
	for _, col := range []string{"date", "open", "high", "low", "settle", "volume", "open_interest"} {
		found := false
		for _, alias := range columnAliases[col] {
			if i, ok := byName[alias]; ok {
				idx[col] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	return idx, missing
}

func decodeRows(contract series.ContractID, names []string, data [][]json.RawMessage) ([]series.RawRow, error) {
	idx, missing := resolveColumns(names)
	if len(missing) > 0 {
		return nil, &series.ValidationError{Contract: contract, Reason: "missing columns " + strings.Join(missing, ", ")}
	}

	rows := make([]series.RawRow, 0, len(data))
	for n, cells := range data {
		cell := func(col string) (json.RawMessage, error) {
			i := idx[col]
			if i >= len(cells) {
				return nil, &series.ValidationError{Contract: contract, Reason: fmt.Sprintf("row %d has %d cells", n, len(cells))}
			}
			return cells[i], nil
		}

		rawDate, err := cell("date")
		if err != nil {
			return nil, err
		}
		var dateStr string
		if err := json.Unmarshal(rawDate, &dateStr); err != nil {
			return nil, &series.ValidationError{Contract: contract, Reason: fmt.Sprintf("row %d: bad date %s", n, rawDate)}
		}
		date, err := series.ParseDate(dateStr)
		if err != nil {
			return nil, &series.ValidationError{Contract: contract, Reason: fmt.Sprintf("row %d: %v", n, err)}
		}

		row := series.RawRow{Date: date}
		targets := []struct {
			col string
			dst *decimal.Decimal
		}{
			{"open", &row.Open},
			{"high", &row.High},
			{"low", &row.Low},
			{"settle", &row.Settle},
			{"volume", &row.Volume},
			{"open_interest", &row.OpenInterest},
		}
		for _, target := range targets {
			raw, err := cell(target.col)
			if err != nil {
				return nil, err
			}
			value, err := decodeNumber(raw)
			if err != nil {
				return nil, &series.ValidationError{Contract: contract, Reason: fmt.Sprintf("row %d column %s: %v", n, target.col, err)}
			}
			*target.dst = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// decodeNumber reads a JSON number cell; null decodes as zero.
func decodeNumber(raw json.RawMessage) (decimal.Decimal, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(text)
}

var _ Fetcher = (*Quandl)(nil)
