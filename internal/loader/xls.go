package loader

import (
	"fmt"
	"strings"

	"github.com/extrame/xls"

	"dsmetl/internal/table"
)

// LoadXLS reads a worksheet from a legacy .xls workbook. Sheet selection
// follows the same order as LoadXLSX.
func LoadXLS(path, sheet string) (*table.Table, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	ws, err := pickXLSSheet(wb, sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var records [][]string
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		rec := make([]string, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			rec[j] = row.Col(j)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %q: no header row", ws.Name)
	}
	return fromRecords(records[0], records[1:])
}

func pickXLSSheet(wb *xls.WorkBook, want string) (*xls.WorkSheet, error) {
	n := wb.NumSheets()
	if n == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	if want != "" {
		for i := 0; i < n; i++ {
			if ws := wb.GetSheet(i); ws != nil && strings.EqualFold(ws.Name, want) {
				return ws, nil
			}
		}
		return nil, fmt.Errorf("sheet %q not found", want)
	}
	for i := 0; i < n; i++ {
		if ws := wb.GetSheet(i); ws != nil && strings.EqualFold(ws.Name, preferredSheet) {
			return ws, nil
		}
	}
	ws := wb.GetSheet(0)
	if ws == nil {
		return nil, fmt.Errorf("workbook has no readable sheets")
	}
	return ws, nil
}
