package postgres

import (
	"fmt"
	"math/big"
)

// bigString renders a big.Int for a NUMERIC(78,0) column. A nil amount is
// stored as zero.
func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// parseBig converts a NUMERIC column scanned as text back into a big.Int.
func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("postgres: parse numeric %q", s)
	}
	return v, nil
}
