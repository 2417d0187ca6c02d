package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/trendbot/journal"
	"github.com/rustyeddy/trendbot/market"
	"github.com/rustyeddy/trendbot/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func takerFees() Fees {
	return Fees{TakerPercent: d("0.055"), MakerPercent: d("-0.025"), EntryKind: Taker}
}

type memJournal struct {
	recs []journal.TradeRecord
	err  error
}

func (m *memJournal) RecordTrade(t journal.TradeRecord) error {
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, t)
	return nil
}

func (m *memJournal) Close() error { return nil }

func newLedger(t *testing.T, j journal.Journal, fees Fees) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "balance.txt")
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(Options{
		Store:          NewBalanceStore(path),
		Journal:        j,
		Fees:           fees,
		DefaultBalance: d("10000"),
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	})
	return l, path
}

func TestLoadBalance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content *string
		want    string
	}{
		{"missing file uses default", nil, "10000"},
		{"malformed file resets to default", ptr("not a number"), "10000"},
		{"negative balance is kept", ptr("-5"), "-5"},
		{"valid file", ptr("1234.5\n"), "1234.5"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "balance.txt")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o644))
			}

			l := New(Options{
				Store:          NewBalanceStore(path),
				Journal:        &memJournal{},
				Fees:           takerFees(),
				DefaultBalance: d("10000"),
			})
			assert.True(t, l.Balance().Equal(d(tt.want)), "balance %s", l.Balance())

			stored, err := NewBalanceStore(path).Load()
			require.NoError(t, err)
			assert.True(t, stored.Equal(d(tt.want)), "stored %s", stored)
		})
	}
}

func ptr(s string) *string { return &s }

func TestOpenCloseSamePriceCostsBothFees(t *testing.T) {
	t.Parallel()

	for _, side := range []market.Side{market.Long, market.Short} {
		side := side
		t.Run(string(side), func(t *testing.T) {
			t.Parallel()
			j := &memJournal{}
			l, _ := newLedger(t, j, takerFees())
			start := l.Balance()

			pos, err := l.Open("BTCUSDT", side, d("100"), d("2"), market.CategoryLinear)
			require.NoError(t, err)
			// 100 * 2 * 0.055 / 100
			assert.True(t, pos.EntryFee.Equal(d("0.11")), "entry fee %s", pos.EntryFee)

			tr, err := l.Close(d("100"), risk.StopLoss)
			require.NoError(t, err)
			require.NotNil(t, tr)

			assert.True(t, tr.PnL.IsZero())
			assert.True(t, tr.ExitFee.Equal(d("0.11")))
			assert.True(t, tr.NetPnL.Equal(d("-0.11")))
			assert.True(t, l.Balance().Equal(start.Sub(d("0.22"))), "balance %s", l.Balance())

			_, open := l.Position()
			assert.False(t, open)
			require.Len(t, j.recs, 1)
			assert.Equal(t, side, j.recs[0].Side)
			assert.Equal(t, "stop_loss", j.recs[0].Reason)
			assert.NotEmpty(t, j.recs[0].TradeID)
		})
	}
}

func TestGrossPnLBySide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		side  market.Side
		close string
		pnl   string
		pct   string
	}{
		{"long gain", market.Long, "101", "1", "1"},
		{"long loss", market.Long, "99.2", "-0.8", "-0.8"},
		{"short gain", market.Short, "99", "1", "1"},
		{"short loss", market.Short, "100.8", "-0.8", "-0.8"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, _ := newLedger(t, &memJournal{}, takerFees())
			_, err := l.Open("ETHUSDT", tt.side, d("100"), d("1"), market.CategoryLinear)
			require.NoError(t, err)

			tr, err := l.Close(d(tt.close), risk.TakeProfit)
			require.NoError(t, err)
			assert.True(t, tr.PnL.Equal(d(tt.pnl)), "pnl %s", tr.PnL)
			assert.True(t, tr.PnLPercent.Equal(d(tt.pct)), "pct %s", tr.PnLPercent)

			wantBalance := tr.NewBalance
			assert.True(t, l.Balance().Equal(wantBalance))
		})
	}
}

func TestBalancePersistedAfterOpen(t *testing.T) {
	t.Parallel()

	l, path := newLedger(t, &memJournal{}, takerFees())
	before := l.Balance()

	pos, err := l.Open("SOLUSDT", market.Long, d("150"), d("3"), market.CategoryLinear)
	require.NoError(t, err)

	reloaded := New(Options{
		Store:          NewBalanceStore(path),
		Journal:        &memJournal{},
		Fees:           takerFees(),
		DefaultBalance: d("1"),
	})
	assert.True(t, reloaded.Balance().Equal(before.Sub(pos.EntryFee)), "reloaded %s", reloaded.Balance())
	_, open := reloaded.Position()
	assert.False(t, open, "positions are not persisted")
}

func TestMakerRebateCreditsBalance(t *testing.T) {
	t.Parallel()

	fees := takerFees()
	fees.EntryKind = Maker
	l, _ := newLedger(t, &memJournal{}, fees)

	pos, err := l.Open("BTCUSDT", market.Short, d("200"), d("1"), market.CategoryLinear)
	require.NoError(t, err)
	assert.True(t, pos.EntryFee.Equal(d("-0.05")), "fee %s", pos.EntryFee)
	assert.True(t, l.Balance().Equal(d("10000.05")))

	// exit is charged at the taker rate regardless of entry kind
	tr, err := l.Close(d("200"), risk.TakeProfit)
	require.NoError(t, err)
	assert.True(t, tr.ExitFee.Equal(d("0.11")), "exit fee %s", tr.ExitFee)
}

func TestClosesAreJournaledInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j := journal.NewCSV(filepath.Join(dir, "history.csv"))
	l := New(Options{
		Store:          NewBalanceStore(filepath.Join(dir, "balance.txt")),
		Journal:        j,
		Fees:           takerFees(),
		DefaultBalance: d("10000"),
	})

	symbols := []string{"AAAUSDT", "BBBUSDT", "CCCUSDT", "DDDUSDT"}
	for i, sym := range symbols {
		_, err := l.Open(sym, market.Long, d("10"), d("1"), market.CategoryLinear)
		require.NoError(t, err)
		_, err = l.Close(d("10").Add(decimal.NewFromInt(int64(i))), risk.TakeProfit)
		require.NoError(t, err)
	}

	recs, err := j.ListTrades()
	require.NoError(t, err)
	require.Len(t, recs, len(symbols))
	for i, sym := range symbols {
		assert.Equal(t, sym, recs[i].Symbol)
	}
	assert.True(t, recs[len(recs)-1].NewBalance.Equal(l.Balance()))
}

func TestCloseWithoutPositionIsNoop(t *testing.T) {
	t.Parallel()

	j := &memJournal{}
	l, _ := newLedger(t, j, takerFees())

	tr, err := l.Close(d("100"), risk.StopLoss)
	assert.NoError(t, err)
	assert.Nil(t, tr)
	assert.Empty(t, j.recs)
	assert.True(t, l.Balance().Equal(d("10000")))
}

func TestOpenWhileOpenPanics(t *testing.T) {
	t.Parallel()

	l, _ := newLedger(t, &memJournal{}, takerFees())
	_, err := l.Open("BTCUSDT", market.Long, d("100"), d("1"), market.CategoryLinear)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_, _ = l.Open("ETHUSDT", market.Short, d("100"), d("1"), market.CategoryLinear)
	})
}

func TestJournalFailureStillCommitsClose(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	l, path := newLedger(t, &memJournal{err: boom}, takerFees())
	_, err := l.Open("BTCUSDT", market.Long, d("100"), d("1"), market.CategoryLinear)
	require.NoError(t, err)

	tr, err := l.Close(d("101"), risk.TakeProfit)
	require.ErrorIs(t, err, boom)
	require.NotNil(t, tr)

	_, open := l.Position()
	assert.False(t, open)

	stored, err := NewBalanceStore(path).Load()
	require.NoError(t, err)
	assert.True(t, stored.Equal(l.Balance()))
}

func TestPnLPercentZeroNotional(t *testing.T) {
	t.Parallel()
	assert.True(t, PnLPercent(d("5"), decimal.Zero).IsZero())
}

func TestNegativeBalanceSurvivesRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "balance.txt")
	core, logs := observer.New(zapcore.WarnLevel)
	opts := Options{
		Store:          NewBalanceStore(path),
		Journal:        &memJournal{},
		Fees:           takerFees(),
		DefaultBalance: d("100"),
		Logger:         zap.New(core),
	}
	l := New(opts)

	_, err := l.Open("BTCUSDT", market.Long, d("100"), d("10"), market.CategoryLinear)
	require.NoError(t, err)
	_, err = l.Close(d("80"), risk.StopLoss)
	require.NoError(t, err)
	// 100 - 0.55 entry fee - 200 gross loss - 0.44 exit fee
	assert.True(t, l.Balance().Equal(d("-100.99")), "balance %s", l.Balance())
	assert.Equal(t, 1, logs.FilterMessage("balance went negative").Len())

	restarted := New(opts)
	assert.True(t, restarted.Balance().Equal(d("-100.99")), "balance %s", restarted.Balance())
	assert.Equal(t, 1, logs.FilterMessage("stored balance is negative, new entries will be refused").Len())

	stored, err := NewBalanceStore(path).Load()
	require.NoError(t, err)
	assert.True(t, stored.Equal(d("-100.99")))
}

func TestCloseLogsGrossAndNetPercent(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	l := New(Options{
		Store:          NewBalanceStore(filepath.Join(t.TempDir(), "balance.txt")),
		Journal:        &memJournal{},
		Fees:           takerFees(),
		DefaultBalance: d("10000"),
		Logger:         zap.New(core),
	})

	_, err := l.Open("BTCUSDT", market.Long, d("100"), d("10"), market.CategoryLinear)
	require.NoError(t, err)
	_, err = l.Close(d("101"), risk.TakeProfit)
	require.NoError(t, err)

	entries := logs.FilterMessage("trade closed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	// gross 10 on notional 1000; exit fee 101 * 10 * 0.055% = 0.5555
	assert.Equal(t, "10.00", fields["gross_pnl"])
	assert.Equal(t, "1.00", fields["gross_pnl_pct"])
	assert.Equal(t, "9.44", fields["net_pnl"])
	assert.Equal(t, "0.94", fields["net_pnl_pct"])
}
