// Package metrics exposes Prometheus metrics for the trading loop.
//
//   - trendbot_signals_total{direction}          entry signals found (strong_buy|strong_sell)
//   - trendbot_trades_total{result}              positions opened/closed (open|win|loss)
//   - trendbot_exit_reasons_total{reason,side}   closes by reason and side
//   - trendbot_balance_usdt                      simulated cash balance
//   - trendbot_price_fetch_failures_total        price lookups that ran out of retries
//   - trendbot_loop_errors_total                 iterations recovered by the loop
//   - trendbot_entries_rejected_total            entries refused by pre-trade risk checks
//
// Metrics are registered with the default registry in init() and served by
// Serve when a listen address is configured.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendbot_signals_total",
			Help: "Entry signals found by the signal source.",
		},
		[]string{"direction"},
	)

	Trades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendbot_trades_total",
			Help: "Simulated trades by result.",
		},
		[]string{"result"},
	)

	ExitReasons = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendbot_exit_reasons_total",
			Help: "Closed positions split by exit reason and side.",
		},
		[]string{"reason", "side"},
	)

	Balance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendbot_balance_usdt",
			Help: "Simulated cash balance in USDT.",
		},
	)

	PriceFetchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trendbot_price_fetch_failures_total",
			Help: "Price lookups that failed after all retries.",
		},
	)

	LoopErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trendbot_loop_errors_total",
			Help: "Loop iterations that failed and were recovered.",
		},
	)

	EntriesRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trendbot_entries_rejected_total",
			Help: "Entry signals refused by pre-trade risk checks.",
		},
	)
)

func init() {
	prometheus.MustRegister(Signals, Trades, ExitReasons, Balance, PriceFetchFailures, LoopErrors, EntriesRejected)
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
