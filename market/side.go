package market

import (
	"fmt"
	"strings"
)

// Side is the direction of a position. The string values match the
// exchange's order side names and are what the trade history records.
type Side string

const (
	Long  Side = "Buy"
	Short Side = "Sell"
)

func (s Side) IsLong() bool  { return s == Long }
func (s Side) IsShort() bool { return s == Short }

func (s Side) Valid() bool {
	return s == Long || s == Short
}

// ParseSide accepts Buy/Sell as well as long/short in any case.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "buy", "long":
		return Long, nil
	case "sell", "short":
		return Short, nil
	}
	return "", fmt.Errorf("unknown side %q", v)
}

// Category is the exchange market segment an instrument trades in.
type Category string

const (
	CategoryLinear  Category = "linear"
	CategoryInverse Category = "inverse"
	CategorySpot    Category = "spot"
)

func ParseCategory(v string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(v)))
	switch c {
	case CategoryLinear, CategoryInverse, CategorySpot:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q (want linear, inverse or spot)", v)
}
