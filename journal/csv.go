package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CSVJournal keeps the trade history in a csv file with the same load,
// append and rewrite contract as the workbook journal.
type CSVJournal struct {
	path string
}

func NewCSV(path string) *CSVJournal {
	return &CSVJournal{path: path}
}

func (j *CSVJournal) Path() string { return j.path }

func header() []string {
	return append(append([]string{}, Columns...), csvExtra...)
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	rows, err := j.readRows()
	if err != nil {
		return err
	}
	rows = append(rows, append(row(t), t.TradeID, t.Reason))

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".~"+filepath.Base(j.path))
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header()); err != nil {
		tmp.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), j.path)
}

func (j *CSVJournal) ListTrades() ([]TradeRecord, error) {
	rows, err := j.readRows()
	if err != nil {
		return nil, err
	}
	out := make([]TradeRecord, 0, len(rows))
	for i, r := range rows {
		rec, err := parseRow(r)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", j.path, i+2, err)
		}
		if len(r) > len(Columns) {
			rec.TradeID = r[len(Columns)]
		}
		if len(r) > len(Columns)+1 {
			rec.Reason = r[len(Columns)+1]
		}
		out = append(out, rec)
	}
	return out, nil
}

func (j *CSVJournal) Close() error { return nil }

func (j *CSVJournal) readRows() ([][]string, error) {
	f, err := os.Open(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", j.path, err)
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}
