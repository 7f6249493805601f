package loader

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"dsmetl/internal/table"
)

// LoadXLSX reads a worksheet from an .xlsx workbook. Sheet selection order:
// the explicitly named sheet, then "raw Data", then the first sheet.
func LoadXLSX(path, sheet string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name, err := pickSheet(f.GetSheetList(), sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read sheet %q: no header row", name)
	}
	return fromRecords(rows[0], rows[1:])
}

func pickSheet(sheets []string, want string) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if want != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, want) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found", want)
	}
	for _, s := range sheets {
		if strings.EqualFold(s, preferredSheet) {
			return s, nil
		}
	}
	return sheets[0], nil
}
