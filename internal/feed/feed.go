// Package feed fetches the upstream tabular payload: one HTTP call returning
// every table of the source spreadsheet at once. The payload is normally a
// JSON object keyed by table name; a published-sheet HTML page with <table>
// elements is accepted as a fallback. Values are kept as raw text so the
// classifier sees exactly what the source emitted.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Row is one feed row: raw column name to raw value text. Absent and blank
// values are equivalent downstream; both carry no type signal.
type Row map[string]string

// Feed is the source's full payload: table name to ordered rows.
type Feed map[string][]Row

// maxBodyBytes bounds a single fetch. Apps Script payloads are a few MB at
// most; anything past this limit is a misbehaving source.
const maxBodyBytes = 64 << 20

// Client retrieves the feed from a fixed URL.
type Client struct {
	URL string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

// Fetch retrieves and parses the entire feed in one call. There is no
// pagination; the source always returns the full payload.
//
// Errors:
//   - Any transport, status, or parse failure is fatal for the fetch; the
//     caller has nothing to synchronize without the payload.
func (c *Client) Fetch(ctx context.Context) (Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	return Parse(body)
}

// Parse sniffs the payload format and decodes it.
func Parse(body []byte) (Feed, error) {
	switch sniffFormat(body) {
	case formatJSON:
		return parseJSON(body)
	case formatHTML:
		return parseHTML(body)
	default:
		return nil, fmt.Errorf("feed: unrecognized payload (neither JSON object nor HTML)")
	}
}

type payloadFormat int

const (
	formatUnknown payloadFormat = iota
	formatJSON
	formatHTML
)

// sniffFormat inspects the first non-space byte. Apps Script emits a JSON
// object; published sheets emit an HTML document.
func sniffFormat(body []byte) payloadFormat {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return formatUnknown
	}
	switch trimmed[0] {
	case '{':
		return formatJSON
	case '<':
		return formatHTML
	default:
		return formatUnknown
	}
}

func parseJSON(body []byte) (Feed, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	// Numbers stay json.Number so the classifier sees the source literal
	// ("10" vs "7.5") rather than a re-rendered float64.
	dec.UseNumber()

	var raw map[string][]map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("feed: decode json: %w", err)
	}

	out := make(Feed, len(raw))
	for table, rows := range raw {
		converted := make([]Row, 0, len(rows))
		for _, r := range rows {
			row := make(Row, len(r))
			for k, v := range r {
				row[k] = valueText(v)
			}
			converted = append(converted, row)
		}
		out[table] = converted
	}
	return out, nil
}

// valueText renders a decoded JSON scalar back to the text the classifier
// should see. Nulls become blank, which downstream treats as NULL.
func valueText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		// Nested arrays/objects are not tabular data; store their JSON form
		// verbatim and let them resolve to text.
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
