package journal

// Prices and amounts are stored as decimal text so they read back exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price TEXT NOT NULL,
	close_price TEXT NOT NULL,
	volume TEXT NOT NULL,
	pnl TEXT NOT NULL,
	new_balance TEXT NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);
`
