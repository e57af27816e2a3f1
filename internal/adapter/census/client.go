// Package census talks to the Census Bureau's international trade
// timeseries API. Responses are JSON arrays of string rows with a header
// row first: [["CTY_CODE","CTY_NAME","ALL_VAL_YR",...], ["1220","CANADA",
// "93878539",...], ...].
package census

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"tradelens/config"
	"tradelens/internal/domain"
)

// The API reports an aggregate row alongside per-country rows; it must
// not leak into the country mappings.
const totalRow = "TOTAL FOR ALL COUNTRIES"

type Client struct {
	exportsURL string
	importsURL string
	year       string
	month      string
	apiKey     string
	client     *http.Client
}

// New builds a client from config. The API key is read from the
// configured environment variable; an empty key omits the parameter (the
// API accepts keyless requests at a lower rate limit).
func New(cfg config.CensusConfig) *Client {
	return &Client{
		exportsURL: cfg.ExportsURL,
		importsURL: cfg.ImportsURL,
		year:       cfg.Year,
		month:      cfg.Month,
		apiKey:     os.Getenv(cfg.APIKeyEnv),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CountryValues fetches export and import values for one HS6 code. Both
// requests must succeed; a failure on either side discards the other.
func (c *Client) CountryValues(hs6 string) (*domain.TradeRecord, error) {
	exports, err := c.fetch(c.exportsURL, "E_COMMODITY", "ALL_VAL_YR", hs6)
	if err != nil {
		return nil, fmt.Errorf("exports: %w", err)
	}

	imports, err := c.fetch(c.importsURL, "I_COMMODITY", "GEN_VAL_YR", hs6)
	if err != nil {
		return nil, fmt.Errorf("imports: %w", err)
	}

	return &domain.TradeRecord{
		ExportValue: exports,
		ImportValue: imports,
	}, nil
}

func (c *Client) fetch(base, commodityParam, valueField, hs6 string) (map[string]int64, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("get", "CTY_CODE,CTY_NAME,"+valueField)
	q.Set(commodityParam, hs6)
	q.Set("COMM_LVL", "HS6")
	q.Set("YEAR", c.year)
	q.Set("MONTH", c.month)
	q.Set("SUMMARY_LVL", "DET")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	resp, err := c.client.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	return parseCountryValues(body)
}

// parseCountryValues projects the row array onto country→value, skipping
// the header row, the all-countries total, and rows with a blank country
// or value. The literal string "null" coerces to zero.
func parseCountryValues(body []byte) (map[string]int64, error) {
	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200]
		}
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", bodyPreview, err)
	}

	values := make(map[string]int64)
	if len(rows) < 2 {
		return values, nil
	}

	for _, row := range rows[1:] {
		if len(row) < 3 {
			continue
		}
		country, _ := row[1].(string)
		if country == "" || country == totalRow {
			continue
		}

		switch v := row[2].(type) {
		case nil:
			// Missing value, skip the row entirely.
		case float64:
			values[country] = int64(v)
		case string:
			if v == "" {
				continue
			}
			if v == "null" {
				values[country] = 0
				continue
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad value %q for %s: %w", v, country, err)
			}
			values[country] = n
		default:
			return nil, fmt.Errorf("unexpected value type %T for %s", v, country)
		}
	}

	return values, nil
}
