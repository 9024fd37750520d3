package timeline

import "github.com/shopspring/decimal"

// Distribute splits delta across days using the given weight shape.
// The returned slice always sums to exactly delta and every entry is >= 0.
// All rounding decisions in the engine funnel through this function.
func Distribute(delta int64, days int, weight Weight) []int64 {
	if days < 1 {
		return nil
	}
	if delta < 0 {
		delta = 0
	}
	out := make([]int64, days)
	if days == 1 {
		out[0] = delta
		return out
	}
	if delta == 0 {
		return out
	}

	switch weight {
	case WeightEarly, WeightLate:
		return distributeTriangular(delta, days, weight)
	default:
		base := delta / int64(days)
		remainder := delta - base*int64(days)
		for i := range out {
			out[i] = base
		}
		// Sales cluster near the report date, so the remainder lands on the
		// last days of the gap.
		for i := days - int(remainder); i < days; i++ {
			out[i]++
		}
		return out
	}
}

func distributeTriangular(delta int64, days int, weight Weight) []int64 {
	weights := make([]int64, days)
	var total int64
	for i := 0; i < days; i++ {
		if weight == WeightEarly {
			weights[i] = int64(days - i)
		} else {
			weights[i] = int64(i + 1)
		}
		total += weights[i]
	}

	out := make([]int64, days)
	var allocated int64
	for i := 0; i < days; i++ {
		out[i] = delta * weights[i] / total
		allocated += out[i]
	}

	// Hand leftover units to the heaviest days first. The remainder is
	// strictly less than the day count, so one descending pass suffices.
	remainder := delta - allocated
	for i := 0; i < days && remainder > 0; i++ {
		idx := i
		if weight == WeightLate {
			idx = days - 1 - i
		}
		out[idx]++
		remainder--
	}
	return out
}

// DistributeAmount splits a decimal amount across days with the same exact-sum
// guarantee as Distribute. The split happens on whole cents; any sub-cent
// residue is carried on the final day.
func DistributeAmount(amount decimal.Decimal, days int, weight Weight) []decimal.Decimal {
	if days < 1 {
		return nil
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	out := make([]decimal.Decimal, days)
	if days == 1 {
		out[0] = amount
		return out
	}

	cents := Distribute(amount.Shift(2).IntPart(), days, weight)
	total := decimal.Zero
	for i, c := range cents {
		out[i] = decimal.New(c, -2)
		total = total.Add(out[i])
	}
	if residue := amount.Sub(total); !residue.IsZero() {
		out[days-1] = out[days-1].Add(residue)
	}
	return out
}
