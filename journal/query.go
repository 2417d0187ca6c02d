package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/trendbot/market"
)

const selectTrades = `
	SELECT trade_id, symbol, side, entry_price, close_price, volume, pnl, new_balance, open_time, close_time, reason
	FROM trades`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var (
		rec  TradeRecord
		side string
	)
	err := s.Scan(
		&rec.TradeID,
		&rec.Symbol,
		&side,
		&rec.EntryPrice,
		&rec.ClosePrice,
		&rec.Volume,
		&rec.PnL,
		&rec.NewBalance,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.Reason,
	)
	if err != nil {
		return TradeRecord{}, err
	}
	if rec.Side, err = market.ParseSide(side); err != nil {
		return TradeRecord{}, fmt.Errorf("trade %s: %w", rec.TradeID, err)
	}
	return rec, nil
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(selectTrades+` WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns every trade in insertion order.
func (j *SQLite) ListTrades() ([]TradeRecord, error) {
	return j.query(selectTrades + ` ORDER BY rowid ASC`)
}

// ListTradesClosedBetween returns trades whose close_time is within [start, end).
func (j *SQLite) ListTradesClosedBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.query(selectTrades+`
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC, rowid ASC`, start.UTC(), end.UTC())
}

func (j *SQLite) query(q string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
