// Package journal persists the history of closed trades.
//
// The xlsx and csv journals write times as RFC3339 text. When reading, they
// also accept Excel date serials, so a history workbook whose time columns
// hold spreadsheet dates can be appended to.
package journal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/trendbot/market"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// TradeRecord is one closed position. PnL is gross of the close fee and
// NewBalance is the balance after the close was booked.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Side       market.Side
	EntryPrice decimal.Decimal
	ClosePrice decimal.Decimal
	Volume     decimal.Decimal
	PnL        decimal.Decimal
	NewBalance decimal.Decimal
	OpenTime   time.Time
	CloseTime  time.Time
	Reason     string
}

// Journal appends closed trades. Records must be written in close order.
type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}

// Reader lists every recorded trade in the order it was written.
type Reader interface {
	ListTrades() ([]TradeRecord, error)
}

// Columns is the tabular layout shared by the xlsx and csv journals.
var Columns = []string{
	"Symbol", "Side", "Entry Price", "Close Price", "Volume",
	"PnL", "New Balance", "Open Time", "Close Time",
}

// Extra columns only the csv journal carries.
var csvExtra = []string{"Trade ID", "Reason"}

// TimeLayout is how timestamps are rendered in tabular journals.
const TimeLayout = time.RFC3339

type Kind string

const (
	KindXLSX   Kind = "xlsx"
	KindCSV    Kind = "csv"
	KindSQLite Kind = "sqlite"
)

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindXLSX, KindCSV, KindSQLite:
		return k, nil
	}
	return "", fmt.Errorf("unknown journal type %q (want xlsx, csv or sqlite)", s)
}

// Store is a journal that can also be read back.
type Store interface {
	Journal
	Reader
}

// Open returns the journal backend for kind at path.
func Open(kind Kind, path string) (Store, error) {
	switch kind {
	case KindXLSX:
		return NewXLSX(path), nil
	case KindCSV:
		return NewCSV(path), nil
	case KindSQLite:
		return NewSQLite(path)
	}
	return nil, fmt.Errorf("unknown journal type %q", kind)
}

// row renders the shared columns as text.
func row(t TradeRecord) []string {
	return []string{
		t.Symbol,
		string(t.Side),
		t.EntryPrice.String(),
		t.ClosePrice.String(),
		t.Volume.String(),
		t.PnL.String(),
		t.NewBalance.String(),
		t.OpenTime.Format(TimeLayout),
		t.CloseTime.Format(TimeLayout),
	}
}

// parseRow is the inverse of row. Missing trailing cells are an error.
func parseRow(cells []string) (TradeRecord, error) {
	if len(cells) < len(Columns) {
		return TradeRecord{}, fmt.Errorf("row has %d cells, want %d", len(cells), len(Columns))
	}

	var (
		rec TradeRecord
		err error
	)
	rec.Symbol = cells[0]
	if rec.Side, err = market.ParseSide(cells[1]); err != nil {
		return TradeRecord{}, fmt.Errorf("%s: %w", Columns[1], err)
	}

	nums := []*decimal.Decimal{&rec.EntryPrice, &rec.ClosePrice, &rec.Volume, &rec.PnL, &rec.NewBalance}
	for i, dst := range nums {
		if *dst, err = decimal.NewFromString(strings.TrimSpace(cells[2+i])); err != nil {
			return TradeRecord{}, fmt.Errorf("%s: %w", Columns[2+i], err)
		}
	}
	if rec.OpenTime, err = parseTime(cells[7]); err != nil {
		return TradeRecord{}, fmt.Errorf("%s: %w", Columns[7], err)
	}
	if rec.CloseTime, err = parseTime(cells[8]); err != nil {
		return TradeRecord{}, fmt.Errorf("%s: %w", Columns[8], err)
	}
	return rec, nil
}

// parseTime reads TimeLayout text or an Excel date serial, which is what a
// spreadsheet date cell holds (e.g. a workbook written by pandas).
func parseTime(cell string) (time.Time, error) {
	cell = strings.TrimSpace(cell)
	t, err := time.Parse(TimeLayout, cell)
	if err == nil {
		return t, nil
	}
	serial, serr := strconv.ParseFloat(cell, 64)
	if serr != nil || serial <= 0 {
		return time.Time{}, err
	}
	t, err = excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, err
	}
	return t.Round(time.Second), nil
}
