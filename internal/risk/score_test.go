package risk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name                                              string
		volatility, correlation, liquidity, leverage, con int64
		want                                              int64
	}{
		{"all zero, fully illiquid", 0, 0, 0, 0, 0, 1000},
		{"all zero, fully liquid", 0, 0, 10000, 0, 0, 0},
		{"everything maxed, fully liquid", 10000, 10000, 10000, 10000, 10000, 9000},
		{"everything maxed, fully illiquid", 10000, 10000, 0, 10000, 10000, 10000},
		{"mid inputs", 5000, 5000, 5000, 5000, 5000, 5000},
		{"volatility only", 10000, 0, 10000, 0, 0, 3000},
		{"concentration only", 0, 0, 10000, 0, 10000, 2500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.volatility, tt.correlation, tt.liquidity, tt.leverage, tt.con)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	a := Score(3100, 4200, 5300, 640, 750)
	b := Score(3100, 4200, 5300, 640, 750)
	require.Equal(t, a, b)
}

func TestScoreClampsOutOfRangeInputs(t *testing.T) {
	require.Equal(t, Score(10000, 0, 10000, 0, 0), Score(50000, -1, 99999, -7, 0))
	got := Score(99999, 99999, -1, 99999, 99999)
	require.Equal(t, int64(10000), got)
}

func TestScoreMonotonicInVolatility(t *testing.T) {
	prev := int64(-1)
	for v := int64(0); v <= 10000; v += 1000 {
		s := Score(v, 2000, 5000, 1000, 3000)
		require.GreaterOrEqual(t, s, prev)
		prev = s
	}
}
