package core

import "sync"

const avgWindow = 30

// MovingAverage keeps a fixed-size window of millisecond samples. The loader
// feeds it per-fetch durations so completion logs can report a useful figure
// without retaining the whole history.
type MovingAverage struct {
	mu      sync.Mutex
	samples [avgWindow]float64
	index   int
	count   int
}

func NewMovingAverage() *MovingAverage {
	return &MovingAverage{}
}

func (ma *MovingAverage) Add(sampleMS float64) {
	ma.mu.Lock()
	defer ma.mu.Unlock()

	ma.samples[ma.index] = sampleMS
	ma.index = (ma.index + 1) % avgWindow
	if ma.count < avgWindow {
		ma.count++
	}
}

func (ma *MovingAverage) Average() float64 {
	ma.mu.Lock()
	defer ma.mu.Unlock()

	if ma.count == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < ma.count; i++ {
		sum += ma.samples[i]
	}
	return sum / float64(ma.count)
}

func (ma *MovingAverage) Reset() {
	ma.mu.Lock()
	defer ma.mu.Unlock()

	ma.index = 0
	ma.count = 0
}
