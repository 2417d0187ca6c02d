package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, side, entry_price, close_price, volume, pnl, new_balance, open_time, close_time, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, string(t.Side), t.EntryPrice.String(), t.ClosePrice.String(),
		t.Volume.String(), t.PnL.String(), t.NewBalance.String(),
		t.OpenTime.UTC(), t.CloseTime.UTC(), t.Reason,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
