package bcb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ibovselic/internal/provider"
)

const (
	source     = "bcb"
	dateLayout = "02/01/2006"
)

var errMissing = errors.New("missing required field")

// FetchSeries retrieves the values of an SGS series between 01/01/startYear
// and 31/12/endYear. Every entry is mapped to the first day of its month;
// entries sharing a month are all kept.
func (c *Client) FetchSeries(ctx context.Context, series, startYear, endYear int) ([]provider.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("formato", "json")
	query.Set("dataInicial", fmt.Sprintf("01/01/%d", startYear))
	query.Set("dataFinal", fmt.Sprintf("31/12/%d", endYear))

	u := fmt.Sprintf("%s/dados/serie/bcdata.sgs.%d/dados?%s", c.baseURL, series, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.TransportError{Method: http.MethodGet, URL: u, Err: err}
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
	case res.StatusCode == http.StatusNotFound:
		return nil, &provider.TransportError{Method: http.MethodGet, URL: u, StatusCode: res.StatusCode, Err: fmt.Errorf("unknown series %d", series)}
	default:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, &provider.TransportError{
			Method:     http.MethodGet,
			URL:        u,
			StatusCode: res.StatusCode,
			Err:        fmt.Errorf("unexpected status %q: %s", res.Status, strings.TrimSpace(string(b))),
		}
	}

	var body any
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, &provider.TransportError{Method: http.MethodGet, URL: u, StatusCode: res.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return parseSeries(body)
}

// parseSeries maps an SGS payload. Anything but a top-level list means no data.
func parseSeries(body any) ([]provider.Record, error) {
	// [
	//   {"data": "01/01/2020", "valor": "0.38"},
	//   {"data": "01/02/2020", "valor": "0.29"}
	// ]
	elems, ok := body.([]any)
	if !ok {
		return []provider.Record{}, nil
	}

	records := make([]provider.Record, 0, len(elems))
	for i, el := range elems {
		item, ok := el.(map[string]any)
		if !ok {
			return nil, &provider.SchemaError{Source: source, Index: i, Err: fmt.Errorf("unexpected type: %T", el)}
		}

		raw, err := parseString(item, "data")
		if err != nil {
			return nil, &provider.SchemaError{Source: source, Index: i, Field: "data", Err: err}
		}
		day, err := time.Parse(dateLayout, strings.TrimSpace(raw))
		if err != nil {
			return nil, &provider.SchemaError{Source: source, Index: i, Field: "data", Err: err}
		}
		value, err := parseFloat(item, "valor")
		if err != nil {
			return nil, &provider.SchemaError{Source: source, Index: i, Field: "valor", Err: err}
		}

		rec := provider.NewRecord(provider.SELIC, day.Year(), day.Month(), value)
		if err := rec.Validate(); err != nil {
			return nil, &provider.SchemaError{Source: source, Index: i, Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseString(data map[string]any, key string) (string, error) {
	v, ok := data[key]
	if !ok || v == nil {
		return "", errMissing
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected type: %T", v)
	}
	return s, nil
}

// parseFloat accepts JSON numbers and numeric strings; SGS sends "valor" as a string.
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
