package b3

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ibovselic/internal/provider"
)

const source = "b3"

var errMissing = errors.New("missing required field")

// query is the request token, encoded as compact JSON then base64.
// Field order is the order B3 expects.
type query struct {
	Index       string `json:"index"`
	Language    string `json:"language"`
	DateInitial string `json:"dateInitial"`
	DateFinal   string `json:"dateFinal"`
}

func encodeToken(startYear, endYear int) string {
	b, _ := json.Marshal(query{
		Index:       "IBOVESPA",
		Language:    "pt-br",
		DateInitial: fmt.Sprintf("%d-01-01", startYear),
		DateFinal:   fmt.Sprintf("%d-12-31", endYear),
	})
	return base64.StdEncoding.EncodeToString(b)
}

// Fetch retrieves the monthly IBOVESPA closing values for [startYear, endYear].
func (c *Client) Fetch(ctx context.Context, startYear, endYear int) ([]provider.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/%s", c.baseURL, route, encodeToken(startYear, endYear))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.TransportError{Method: http.MethodGet, URL: url, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, &provider.TransportError{
			Method:     http.MethodGet,
			URL:        url,
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("unexpected status %q: %s", res.Status, strings.TrimSpace(string(b))),
		}
	}

	var body any
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, &provider.TransportError{Method: http.MethodGet, URL: url, StatusCode: res.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return parseMonthlyEvolution(body)
}

// parseMonthlyEvolution accepts either a bare list or {"results": [...]}.
// Any other top-level shape means no data.
func parseMonthlyEvolution(body any) ([]provider.Record, error) {
	var elems []any
	switch v := body.(type) {
	case []any:
		elems = v
	case map[string]any:
		// {
		//   "results": [
		//     {"month": 1, "year": 2020, "indexClosingRate": 113760.57}
		//   ]
		// }
		elems, _ = v["results"].([]any)
	}

	records := make([]provider.Record, 0, len(elems))
	for i, el := range elems {
		item, ok := el.(map[string]any)
		if !ok {
			return nil, &provider.SchemaError{Source: source, Index: i, Err: fmt.Errorf("unexpected type: %T", el)}
		}

		month, err := parseInt(item, "month")
		if err != nil {
			return nil, &provider.SchemaError{Source: source, Index: i, Field: "month", Err: err}
		}
		year, err := parseInt(item, "year")
		if err != nil {
			return nil, &provider.SchemaError{Source: source, Index: i, Field: "year", Err: err}
		}
		closing, err := parseFloat(item, "indexClosingRate")
		if err != nil {
			return nil, &provider.SchemaError{Source: source, Index: i, Field: "indexClosingRate", Err: err}
		}

		rec := provider.Record{
			DateReference: provider.MonthStart(year, time.Month(month)),
			Month:         month,
			Year:          year,
			Index:         provider.IBOV,
			Value:         closing,
		}
		if err := rec.Validate(); err != nil {
			return nil, &provider.SchemaError{Source: source, Index: i, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseInt(data map[string]any, key string) (int, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return 0, errMissing
	}
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), nil
		}
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("not an integer: %s", x)
		}
		return int(f), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", x)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unexpected type: %T", v)
}

func parseFloat(data map[string]any, key string) (float64, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return 0, errMissing
	}
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("unexpected type: %T", v)
}
