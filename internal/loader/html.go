package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dsmetl/internal/table"
)

// LoadHTML reads the first <table> element from an HTML document. The header
// comes from <th> cells when present, otherwise from the first row.
func LoadHTML(r io.Reader) (*table.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return nil, fmt.Errorf("parse html: no table element")
	}

	var header []string
	var rows [][]string
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) == 0 {
			return
		}
		if header == nil {
			header = cells
			return
		}
		rows = append(rows, cells)
	})
	if header == nil {
		return nil, fmt.Errorf("parse html: table has no rows")
	}
	return fromRecords(header, rows)
}
