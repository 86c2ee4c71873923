package risk

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PlannedRisk is the currency loss if the stop is hit.
func PlannedRisk(qty, entry, stop float64) float64 {
	if stop <= 0 {
		return 0
	}
	return qty * abs(entry-stop)
}

// RR is the reward to risk multiple of a planned trade.
func RR(entry, stop, takeProfit float64) float64 {
	risk := abs(entry - stop)
	reward := abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}
