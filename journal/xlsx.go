package journal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Sheet is the worksheet trades are written to.
const Sheet = "Trade History"

// XLSX keeps the trade history in a single-sheet workbook. Every append
// loads the existing rows, adds one, and rewrites the whole file.
type XLSX struct {
	path string
}

func NewXLSX(path string) *XLSX {
	return &XLSX{path: path}
}

func (j *XLSX) Path() string { return j.path }

func (j *XLSX) RecordTrade(t TradeRecord) error {
	rows, err := j.readRows()
	if err != nil {
		return err
	}
	rows = append(rows, row(t))
	return j.write(rows)
}

func (j *XLSX) ListTrades() ([]TradeRecord, error) {
	rows, err := j.readRows()
	if err != nil {
		return nil, err
	}
	out := make([]TradeRecord, 0, len(rows))
	for i, r := range rows {
		rec, err := parseRow(r)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", j.path, i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Close is a no-op; the workbook is not held open between appends.
func (j *XLSX) Close() error { return nil }

// readRows returns the data rows without the header. A missing file has none.
func (j *XLSX) readRows() ([][]string, error) {
	if _, err := os.Stat(j.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	f, err := excelize.OpenFile(j.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", j.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", Sheet, err)
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}

func (j *XLSX) write(rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(Sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		vals := cellValues(r)
		if err := f.SetSheetRow(Sheet, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	// Write next to the target and rename so a crash never leaves half a file.
	tmp := filepath.Join(filepath.Dir(j.path), ".~"+filepath.Base(j.path))
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("save %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		return fmt.Errorf("replace %s: %w", j.path, err)
	}
	return nil
}

// cellValues stores the price, volume and balance columns as numbers so the
// sheet stays usable in a spreadsheet.
func cellValues(r []string) []interface{} {
	out := make([]interface{}, len(r))
	for i, s := range r {
		out[i] = s
		if i >= 2 && i <= 6 {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				out[i] = v
			}
		}
	}
	return out
}
