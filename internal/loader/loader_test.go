package loader

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"golang.org/x/text/encoding/unicode"
)

func TestLoadCSV(t *testing.T) {
	t.Parallel()

	in := "Site,Month,Measured Energy\nWASHI,Jan-25,120.5\ntx12,Feb-25,\n"
	tbl, err := LoadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadCSV() err=%v", err)
	}
	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"Site", "Month", "Measured Energy"}) {
		t.Fatalf("Columns()=%v", got)
	}
	if tbl.NumRows() != 2 {
		t.Fatalf("NumRows()=%d, want 2", tbl.NumRows())
	}
	if got := tbl.Cell(0, "Measured Energy"); got != "120.5" {
		t.Fatalf("Cell(0, Measured Energy)=%v, want \"120.5\"", got)
	}
	// Blank cells are nil, not "".
	if got := tbl.Cell(1, "Measured Energy"); got != nil {
		t.Fatalf("Cell(1, Measured Energy)=%v, want nil", got)
	}
}

func TestLoadCSV_StripsBOM(t *testing.T) {
	t.Parallel()

	in := "\ufeffSite,Month\nWASHI,Jan-25\n"
	tbl, err := LoadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadCSV() err=%v", err)
	}
	if !tbl.HasColumn("Site") {
		t.Fatalf("BOM not stripped from first header; columns=%v", tbl.Columns())
	}
}

func TestLoadCSV_UTF16(t *testing.T) {
	t.Parallel()

	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	raw, err := enc.Bytes([]byte("Site,Month\nWASHI,Jan-25\n"))
	if err != nil {
		t.Fatalf("encode utf16: %v", err)
	}

	tbl, err := LoadCSV(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("LoadCSV() err=%v", err)
	}
	if got := tbl.Cell(0, "Site"); got != "WASHI" {
		t.Fatalf("Cell(0, Site)=%v, want WASHI", got)
	}
}

func TestLoadCSV_RaggedRowsPadded(t *testing.T) {
	t.Parallel()

	in := "A,B,C\n1,2\n1,2,3,4\n"
	tbl, err := LoadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadCSV() err=%v", err)
	}
	if tbl.Cell(0, "C") != nil {
		t.Fatalf("short row not padded with nil")
	}
	if got := tbl.Cell(1, "C"); got != "3" {
		t.Fatalf("long row not truncated to header width; C=%v", got)
	}
}

func TestLoadCSV_Empty(t *testing.T) {
	t.Parallel()

	if _, err := LoadCSV(strings.NewReader("")); err == nil {
		t.Fatalf("LoadCSV(empty) err=nil, want error")
	}
}

func TestLoadHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{
			name: "th_header",
			in: `<html><body><table>
				<tr><th>Site</th><th>Month</th></tr>
				<tr><td>WASHI</td><td>Jan-25</td></tr>
			</table></body></html>`,
		},
		{
			name: "td_first_row_header",
			in: `<table>
				<tr><td>Site</td><td>Month</td></tr>
				<tr><td>WASHI</td><td>Jan-25</td></tr>
			</table>`,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tbl, err := LoadHTML(strings.NewReader(tc.in))
			if err != nil {
				t.Fatalf("LoadHTML() err=%v", err)
			}
			if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"Site", "Month"}) {
				t.Fatalf("Columns()=%v", got)
			}
			if got := tbl.Cell(0, "Site"); got != "WASHI" {
				t.Fatalf("Cell(0, Site)=%v", got)
			}
		})
	}
}

func TestLoadHTML_NoTable(t *testing.T) {
	t.Parallel()

	if _, err := LoadHTML(strings.NewReader("<html><body><p>hi</p></body></html>")); err == nil {
		t.Fatalf("LoadHTML(no table) err=nil, want error")
	}
}

func writeWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()

	f := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			f.SetSheetName("Sheet1", name)
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("NewSheet(%q): %v", name, err)
			}
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestLoadXLSX_PrefersRawDataSheet(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, map[string][][]any{
		"Summary":  {{"ignore"}},
		"raw Data": {{"Site", "Month"}, {"WASHI", "Jan-25"}},
	})

	tbl, err := LoadXLSX(path, "")
	if err != nil {
		t.Fatalf("LoadXLSX() err=%v", err)
	}
	if got := tbl.Cell(0, "Site"); got != "WASHI" {
		t.Fatalf("Cell(0, Site)=%v, want WASHI", got)
	}
}

func TestLoadXLSX_ExplicitSheet(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, map[string][][]any{
		"Data": {{"Site"}, {"TX_12"}},
	})

	tbl, err := LoadXLSX(path, "data") // case-insensitive
	if err != nil {
		t.Fatalf("LoadXLSX() err=%v", err)
	}
	if got := tbl.Cell(0, "Site"); got != "TX_12" {
		t.Fatalf("Cell(0, Site)=%v", got)
	}

	if _, err := LoadXLSX(path, "absent"); err == nil {
		t.Fatalf("LoadXLSX(absent sheet) err=nil, want error")
	}
}

func TestPickSheet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sheets  []string
		want    string
		ask     string
		wantErr bool
	}{
		{name: "explicit", sheets: []string{"a", "b"}, ask: "b", want: "b"},
		{name: "explicit_missing", sheets: []string{"a"}, ask: "b", wantErr: true},
		{name: "prefers_raw_data", sheets: []string{"Summary", "raw Data"}, want: "raw Data"},
		{name: "falls_back_to_first", sheets: []string{"Summary", "Other"}, want: "Summary"},
		{name: "no_sheets", sheets: nil, wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := pickSheet(tc.sheets, tc.ask)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("pickSheet()=%q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("pickSheet() err=%v", err)
			}
			if got != tc.want {
				t.Fatalf("pickSheet()=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	if _, err := Load("settlement.parquet", Options{}); err == nil {
		t.Fatalf("Load(parquet) err=nil, want error")
	}
}
