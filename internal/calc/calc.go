// Package calc holds the pure functions that turn raw counters into reported values.
package calc

import (
	"math"
	"time"
)

const (
	maxCounter32 = float64(math.MaxUint32)
	wrap32       = maxCounter32 + 1
)

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// CounterDelta returns cur-prev for a monotonically increasing counter. A
// counter that went backwards wrapped at 32 bits only when prev sat in the upper
// half of the 32-bit range and the wrapped distance is shorter than the drop;
// anything else is a reset (e.g. the VM restarted) and the delta is cur.
func CounterDelta(prev, cur float64) float64 {
	if cur >= prev {
		return cur - prev
	}
	if prev <= maxCounter32 && prev-cur > wrap32/2 {
		return wrap32 - prev + cur
	}
	return cur
}

// CPUPercent converts a cumulative nanosecond busy counter into a usage
// percentage over the window [prevTime, curTime], rounded to two decimals.
// An empty or inverted window yields 0, and the result is never negative.
func CPUPercent(prev, cur float64, prevTime, curTime time.Time) float64 {
	dt := curTime.Sub(prevTime).Seconds()
	if dt <= 0 {
		return 0.0
	}
	return Round(math.Max(0, 100.0*CounterDelta(prev, cur)/(dt*1e9)), 2)
}

// BytesToKiB converts bytes to kibibytes rounded to three decimals.
func BytesToKiB(b float64) float64 {
	return Round(b/1024.0, 3)
}
