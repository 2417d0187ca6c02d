package ledger

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// BalanceStore persists the cash balance as a single decimal in a text file.
// The file is overwritten on every save.
type BalanceStore struct {
	path string
}

func NewBalanceStore(path string) *BalanceStore {
	return &BalanceStore{path: path}
}

func (s *BalanceStore) Path() string { return s.path }

// Load reads the stored balance. A missing file is returned as the os error
// and unparsable content is an error. A negative value is returned as is.
func (s *BalanceStore) Load() (decimal.Decimal, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return decimal.Zero, err
	}
	v, err := decimal.NewFromString(strings.TrimSpace(string(b)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return v, nil
}

func (s *BalanceStore) Save(v decimal.Decimal) error {
	if err := os.WriteFile(s.path, []byte(v.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
