// Package loader reads settlement files into a table.Table. The format is
// chosen by file extension; every loader produces string cells and leaves
// type coercion to the cleaning stage.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dsmetl/internal/table"
)

// preferredSheet is the worksheet name settlement exports usually carry.
// Spreadsheet loaders pick it when present and no explicit sheet is asked for.
const preferredSheet = "raw Data"

// Options controls format-specific loading behavior.
type Options struct {
	// Sheet names the worksheet to read from spreadsheet inputs. Empty means
	// prefer "raw Data", then the first sheet.
	Sheet string
}

// Load reads the file at path into a table, dispatching on the extension.
func Load(path string, opt Options) (*table.Table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return LoadCSV(f)
	case ".xlsx":
		return LoadXLSX(path, opt.Sheet)
	case ".xls":
		return LoadXLS(path, opt.Sheet)
	case ".html", ".htm":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return LoadHTML(f)
	default:
		return nil, fmt.Errorf("load %s: unsupported extension %q", path, ext)
	}
}

// fromRecords builds a table from a header row plus data rows. Header cells
// are trimmed; empty data cells become nil so downstream null checks treat
// blank and absent cells alike.
func fromRecords(header []string, rows [][]string) (*table.Table, error) {
	cols := make([]string, len(header))
	nonEmpty := false
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
		if cols[i] != "" {
			nonEmpty = true
		}
	}
	if !nonEmpty {
		return nil, fmt.Errorf("empty header row")
	}

	t := table.New(cols)
	cells := make([]any, len(cols))
	for _, rec := range rows {
		for i := range cells {
			cells[i] = nil
			if i < len(rec) {
				if v := strings.TrimSpace(rec[i]); v != "" {
					cells[i] = v
				}
			}
		}
		t.AppendRow(cells)
	}
	return t, nil
}
