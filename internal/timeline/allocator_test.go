package timeline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDistributeEvenRemainderFallsOnLastDays(t *testing.T) {
	require.Equal(t, []int64{3, 3, 4}, Distribute(10, 3, WeightEven))
	require.Equal(t, []int64{2, 3, 3}, Distribute(8, 3, WeightEven))
}

func TestDistributeEarlyRemainderGoesToHeaviestDays(t *testing.T) {
	// Weights [3,2,1]: floors [5,3,1] leave one unit for the heaviest day.
	require.Equal(t, []int64{6, 3, 1}, Distribute(10, 3, WeightEarly))
}

func TestDistributeLateRemainderGoesToHeaviestDays(t *testing.T) {
	// Weights [1,2,3]: floors [1,3,5] leave one unit for the heaviest day.
	require.Equal(t, []int64{1, 3, 6}, Distribute(10, 3, WeightLate))
}

func TestDistributeSingleDayIdentity(t *testing.T) {
	for _, weight := range []Weight{WeightEven, WeightEarly, WeightLate} {
		require.Equal(t, []int64{42}, Distribute(42, 1, weight))
	}
}

func TestDistributeZeroDelta(t *testing.T) {
	require.Equal(t, []int64{0, 0, 0, 0}, Distribute(0, 4, WeightEarly))
}

func TestDistributeInvalidDayCount(t *testing.T) {
	require.Nil(t, Distribute(10, 0, WeightEven))
}

func TestDistributeSumInvariant(t *testing.T) {
	for _, weight := range []Weight{WeightEven, WeightEarly, WeightLate} {
		for delta := int64(0); delta <= 200; delta += 7 {
			for days := 1; days <= 21; days++ {
				parts := Distribute(delta, days, weight)
				require.Len(t, parts, days)
				var sum int64
				for _, part := range parts {
					require.GreaterOrEqual(t, part, int64(0))
					sum += part
				}
				require.Equal(t, delta, sum, "weight=%s delta=%d days=%d", weight, delta, days)
			}
		}
	}
}

func TestDistributeAmountExactSum(t *testing.T) {
	amounts := []string{"0", "10", "100.01", "10.005", "999.99"}
	for _, raw := range amounts {
		amount := decimal.RequireFromString(raw)
		for _, weight := range []Weight{WeightEven, WeightEarly, WeightLate} {
			for days := 1; days <= 9; days++ {
				parts := DistributeAmount(amount, days, weight)
				require.Len(t, parts, days)
				total := decimal.Zero
				for _, part := range parts {
					require.False(t, part.IsNegative())
					total = total.Add(part)
				}
				require.True(t, total.Equal(amount), "amount=%s weight=%s days=%d got=%s", raw, weight, days, total)
			}
		}
	}
}

func TestDistributeAmountNegativeClampedToZero(t *testing.T) {
	parts := DistributeAmount(decimal.RequireFromString("-5"), 3, WeightEven)
	for _, part := range parts {
		require.True(t, part.IsZero())
	}
}
