package adapt

import (
	"fmt"
	"math"
)

// Plan builds the tuning window schedule. Windows start at
// initialWindow steps and double, the last window absorbs the
// remaining budget so that the windows sum exactly to
// totalTune - burnIn. The burn-in itself precedes the final sampling
// run and is not part of the schedule.
func Plan(initialWindow, burnIn, totalTune int) ([]int, error) {
	if initialWindow <= 0 {
		return nil, fmt.Errorf("initial window must be positive, got %d", initialWindow)
	}
	if burnIn < 0 {
		return nil, fmt.Errorf("burn-in must not be negative, got %d", burnIn)
	}
	budget := totalTune - burnIn
	if budget <= 0 {
		return nil, fmt.Errorf("no tuning budget: %d total tuning steps, %d burn-in", totalTune, burnIn)
	}

	// number of full doubling windows fitting the budget
	k := 0
	if budget >= initialWindow {
		k = int(math.Floor(math.Log2(float64(budget) / float64(initialWindow))))
	}
	if k > 62 {
		return nil, fmt.Errorf("schedule overflow: budget %d, initial window %d", budget, initialWindow)
	}

	windows := make([]int, 0, k+1)
	sum := 0
	for i := 0; i < k; i++ {
		w := initialWindow << uint(i)
		windows = append(windows, w)
		sum += w
	}
	if rem := budget - sum; rem > 0 {
		windows = append(windows, rem)
	}
	return windows, nil
}

// planSum is the total length of a schedule.
func planSum(windows []int) (sum int) {
	for _, w := range windows {
		sum += w
	}
	return
}
