package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// parseHTML extracts one feed table per <table> element of a published-sheet
// page. The table name comes from the element's <caption>, falling back to
// its id attribute, then to a positional name. The first row supplies column
// names; remaining rows supply values.
//
// Extraction is resilient by design: tables without a usable header simply
// produce no rows, and cells beyond the header width are dropped.
func parseHTML(body []byte) (Feed, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("feed: parse html: %w", err)
	}

	out := Feed{}
	doc.Find("table").Each(func(i int, tbl *goquery.Selection) {
		name := strings.TrimSpace(tbl.Find("caption").First().Text())
		if name == "" {
			name, _ = tbl.Attr("id")
		}
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}

		var headers []string
		trs := tbl.Find("tr")
		trs.First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})

		var rows []Row
		trs.Each(func(j int, tr *goquery.Selection) {
			if j == 0 {
				return
			}
			row := Row{}
			tr.Find("th, td").Each(func(k int, cell *goquery.Selection) {
				if k >= len(headers) || headers[k] == "" {
					return
				}
				row[headers[k]] = strings.TrimSpace(cell.Text())
			})
			if len(row) > 0 {
				rows = append(rows, row)
			}
		})

		out[name] = rows
	})

	return out, nil
}
