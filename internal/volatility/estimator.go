// Package volatility maintains a rolling window of mid prices and derives a
// short-horizon volatility estimate from it.
package volatility

import (
	"math"
	"sync"
)

// DefaultWindowSize is the mid-price window capacity.
const DefaultWindowSize = 60

// Estimator keeps a fixed-capacity FIFO window of mid prices and recomputes
// a window-length-scaled log-return volatility on every update.
//
// The formula stddev(log returns) * sqrt(len(returns)) is a deliberately
// biased, responsiveness-over-purity scaling inherited from the tuned model;
// it is reproduced as observed behavior rather than a textbook
// annualization.
type Estimator struct {
	mu       sync.Mutex
	window   []float64
	capacity int
}

// New creates an Estimator with the given window capacity. Non-positive
// capacities fall back to DefaultWindowSize.
func New(capacity int) *Estimator {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Estimator{
		window:   make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// Update appends midPrice to the window, evicting the oldest sample at
// capacity, and returns the current volatility. With fewer than two samples
// there are no returns to measure and the result is 0. Callers must only
// supply positive mid prices; that contract is enforced upstream where the
// mid is derived from a populated book.
func (e *Estimator) Update(midPrice float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.window) == e.capacity {
		copy(e.window, e.window[1:])
		e.window = e.window[:len(e.window)-1]
	}
	e.window = append(e.window, midPrice)

	if len(e.window) < 2 {
		return 0
	}

	returns := make([]float64, len(e.window)-1)
	for i := 1; i < len(e.window); i++ {
		returns[i-1] = math.Log(e.window[i]) - math.Log(e.window[i-1])
	}
	return stddev(returns) * math.Sqrt(float64(len(returns)))
}

// Len returns the current number of samples in the window.
func (e *Estimator) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.window)
}

// stddev is the population standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}
