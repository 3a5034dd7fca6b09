package risk

// HighRiskThreshold classifies a position as high-risk regardless of the
// user's declared bounds. Crossing it raises an alert, not an error.
const HighRiskThreshold = 8000

// Score weights, in percent. Volatility, leverage, concentration, and
// correlation push the score up; liquidity pulls it down (its complement is
// weighted in). The weights sum to 100 so a position maxing every input
// scores exactly 10000.
const (
	weightVolatility    = 30
	weightLeverage      = 20
	weightConcentration = 25
	weightCorrelation   = 15
	weightIlliquidity   = 10
)

// Score computes the position risk score from basis-point inputs. It is a
// pure function: identical inputs always produce the identical score, each
// input contributes independently and monotonically, and the result is
// bounded to [0, 10000].
func Score(volatility, correlation, liquidity, leverage, concentration int64) int64 {
	vol := clampBps(volatility)
	corr := clampBps(correlation)
	liq := clampBps(liquidity)
	lev := clampBps(leverage)
	conc := clampBps(concentration)

	score := (weightVolatility*vol +
		weightLeverage*lev +
		weightConcentration*conc +
		weightCorrelation*corr +
		weightIlliquidity*(10000-liq)) / 100

	return clampBps(score)
}

func clampBps(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > 10000 {
		return 10000
	}
	return v
}
