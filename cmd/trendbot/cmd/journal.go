package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rustyeddy/trendbot/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the trade history",
	Long: `Read trade history records from the configured journal
(xlsx, csv or sqlite; see JOURNAL_TYPE and HISTORY_FILE).

Subcommands:
  list   - List every closed trade
  show   - Show one trade by ID or 1-based row number
  day    - List trades closed on a specific day

Examples:
  trendbot journal list
  trendbot journal show 01HZX3J8K2W4
  trendbot journal day 2024-01-15 --type sqlite --path trades.sqlite`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every closed trade",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <trade-id|row>",
	Short: "Show one trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalShow,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var (
	journalType string
	journalPath string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalDayCmd)

	journalCmd.PersistentFlags().StringVar(&journalType, "type", "", "journal type: xlsx|csv|sqlite (default from config)")
	journalCmd.PersistentFlags().StringVar(&journalPath, "path", "", "journal file (default from config)")
}

func openJournal() (journal.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	typ, path := cfg.Journal.Type, cfg.Journal.Path
	if journalType != "" {
		typ = journalType
	}
	if journalPath != "" {
		path = journalPath
	}

	kind, err := journal.ParseKind(typ)
	if err != nil {
		return nil, err
	}
	j, err := journal.Open(kind, path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTrades()
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := findTrade(j, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

// findTrade looks a trade up by ID, falling back to a 1-based row number
// for journals that do not store IDs.
func findTrade(j journal.Store, key string) (journal.TradeRecord, error) {
	if db, ok := j.(*journal.SQLite); ok {
		if rec, err := db.GetTrade(key); err == nil {
			return rec, nil
		}
	}

	recs, err := j.ListTrades()
	if err != nil {
		return journal.TradeRecord{}, fmt.Errorf("list trades: %w", err)
	}
	for _, r := range recs {
		if r.TradeID != "" && r.TradeID == key {
			return r, nil
		}
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(recs) {
		return recs[n-1], nil
	}
	return journal.TradeRecord{}, fmt.Errorf("trade %q not found", key)
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	var recs []journal.TradeRecord
	if db, ok := j.(*journal.SQLite); ok {
		recs, err = db.ListTradesClosedBetween(start, end)
	} else {
		recs, err = closedBetween(j, start, end)
	}
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func closedBetween(r journal.Reader, start, end time.Time) ([]journal.TradeRecord, error) {
	all, err := r.ListTrades()
	if err != nil {
		return nil, err
	}
	var out []journal.TradeRecord
	for _, t := range all {
		if !t.CloseTime.Before(start) && t.CloseTime.Before(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
